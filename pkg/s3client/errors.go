package s3client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrBucketNotFound is returned by New when the configured bucket is missing
var ErrBucketNotFound = errors.New("bucket not found")

var (
	notFoundCodes = map[string]bool{
		"NoSuchBucket": true,
		"NoSuchKey":    true,
		"NotFound":     true,
	}
	authCodes = map[string]bool{
		"AccessDenied":                 true,
		"InvalidAccessKeyId":           true,
		"SignatureDoesNotMatch":        true,
		"AuthorizationHeaderMalformed": true,
	}
	authMessages = []string{"access denied", "unauthorized", "invalid credential", "permission denied"}
)

// errorCode returns the S3 error code carried by err, if any
func errorCode(err error) (string, bool) {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code != "" {
		return resp.Code, true
	}
	return "", false
}

// IsNotFoundError reports whether err means a missing bucket or object
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBucketNotFound) {
		return true
	}
	if code, ok := errorCode(err); ok {
		return notFoundCodes[code]
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no such")
}

// IsAuthError reports whether err was caused by bad or insufficient credentials
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := errorCode(err); ok {
		return authCodes[code]
	}

	msg := strings.ToLower(err.Error())
	for _, m := range authMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// FormatError renders err for the user, naming the bucket when S3 reported one
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var resp minio.ErrorResponse
	if !errors.As(err, &resp) || resp.Code == "" {
		return err.Error()
	}
	if resp.BucketName != "" {
		return fmt.Sprintf("%s on bucket %s (%s)", resp.Message, resp.BucketName, resp.Code)
	}
	return fmt.Sprintf("%s (%s)", resp.Message, resp.Code)
}
