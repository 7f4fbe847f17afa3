// Package artifact publishes rendered maps to local disk or object storage.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bstardust/geomap/internal/logger"
)

// ErrInvalidName is returned for names that are not plain map file names
var ErrInvalidName = errors.New("invalid map name")

// Artifact is a published map
type Artifact struct {
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Sink stores rendered maps
type Sink interface {
	Publish(ctx context.Context, name string, html []byte) (*Artifact, error)
	List(ctx context.Context) ([]Artifact, error)
	Remove(ctx context.Context, name string) error
}

// NewName returns the file name for a map rendered at t
func NewName(t time.Time) string {
	return fmt.Sprintf("map_result-%s.html", t.UTC().Format("20060102-150405.000"))
}

// ValidName reports whether name is a bare .html file name
func ValidName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".html")
}

// DiskSink writes maps into a directory
type DiskSink struct {
	dir string
}

// NewDiskSink creates a sink writing to dir, creating it when missing
func NewDiskSink(dir string) (*DiskSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DiskSink{dir: dir}, nil
}

// Dir returns the output directory
func (d *DiskSink) Dir() string {
	return d.dir
}

// Path returns the file path of a published map
func (d *DiskSink) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.dir, name), nil
}

// Publish writes html to name and returns its absolute file URL
func (d *DiskSink) Publish(ctx context.Context, name string, html []byte) (*Artifact, error) {
	p, err := d.Path(name)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(p, html, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write map: %w", err)
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	logger.Info("Map saved to %s", abs)
	return &Artifact{
		Name:     name,
		Location: "file://" + filepath.ToSlash(abs),
		Size:     int64(len(html)),
		Modified: time.Now(),
	}, nil
}

// List returns the published maps, newest first
func (d *DiskSink) List(ctx context.Context) ([]Artifact, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var out []Artifact
	for _, e := range entries {
		if e.IsDir() || !ValidName(e.Name()) || !strings.HasPrefix(e.Name(), "map_result") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{
			Name:     e.Name(),
			Location: filepath.Join(d.dir, e.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sortNewestFirst(out)
	return out, nil
}

// Remove deletes a published map
func (d *DiskSink) Remove(ctx context.Context, name string) error {
	p, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("map %s: %w", name, fs.ErrNotExist)
		}
		return fmt.Errorf("failed to remove map: %w", err)
	}
	return nil
}

func sortNewestFirst(artifacts []Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Modified.Equal(artifacts[j].Modified) {
			return artifacts[i].Name > artifacts[j].Name
		}
		return artifacts[i].Modified.After(artifacts[j].Modified)
	})
}
