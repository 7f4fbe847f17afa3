package cli

import (
	"context"
	"fmt"

	"github.com/bstardust/geomap/internal/artifact"
	"github.com/bstardust/geomap/internal/geocode"
	"github.com/bstardust/geomap/internal/locate"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/bstardust/geomap/internal/mapbuild"
	"github.com/bstardust/geomap/pkg/s3client"
	"github.com/spf13/pflag"
)

// configKeyAnnotation marks a flag that overrides a config key
const configKeyAnnotation = "geomap_config_key"

// bind lets a flag override the config key when it is set. Several commands
// may offer the same key, so the binding to viper happens in bindFlags for
// the command that actually runs.
func (a *app) bind(key string, flag *pflag.Flag) {
	if flag.Annotations == nil {
		flag.Annotations = map[string][]string{}
	}
	flag.Annotations[configKeyAnnotation] = []string{key}
}

// bindFlags binds the annotated flags of the running command to viper
func (a *app) bindFlags(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || err != nil {
			return
		}
		err = a.v.BindPFlag(keys[0], f)
	})
	return err
}

// openGeocoder returns a Nominatim client backed by the response cache. A
// cache that cannot be opened is logged and skipped. The returned close
// function is never nil.
func (a *app) openGeocoder() (*geocode.Client, func()) {
	cfg := a.cfg.Geocode

	cache, err := geocode.OpenCache(cfg.CachePath, cfg.CacheDSN)
	if err != nil {
		logger.Warn("Geocode cache disabled: %v", err)
		return geocode.New(cfg, nil), func() {}
	}
	return geocode.New(cfg, cache), func() {
		if err := cache.Close(); err != nil {
			logger.Warn("Failed to close geocode cache: %v", err)
		}
	}
}

// builder wires the map builder. The geocoder is only opened when a mode
// or reverse lookups need it.
func (a *app) builder(needGeocoder bool) (*mapbuild.Builder, func()) {
	var geocoder mapbuild.Geocoder
	closeFn := func() {}
	if needGeocoder || a.cfg.Extract.Reverse {
		client, c := a.openGeocoder()
		geocoder, closeFn = client, c
	}

	return mapbuild.New(a.cfg, geocoder, locate.New(a.cfg.Locate)), closeFn
}

// sinks returns where maps are published. The disk sink is always returned
// so that the web UI can serve local maps; sink is the S3 sink when a
// bucket is configured.
func (a *app) sinks(ctx context.Context) (sink artifact.Sink, disk *artifact.DiskSink, err error) {
	disk, err = artifact.NewDiskSink(a.cfg.Render.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	if !a.cfg.S3.Enabled() {
		return disk, disk, nil
	}

	client, err := s3client.New(ctx, s3client.Config{
		Endpoint:  a.cfg.S3.Endpoint,
		Region:    a.cfg.S3.Region,
		Bucket:    a.cfg.S3.Bucket,
		AccessKey: a.cfg.S3.AccessKey,
		SecretKey: a.cfg.S3.SecretKey,
		UseSSL:    a.cfg.S3.UseSSL,
		Prefix:    a.cfg.S3.Prefix,
	})
	if err != nil {
		if s3client.IsAuthError(err) {
			return nil, nil, fmt.Errorf("failed to initialize S3 client, check the credentials: %s", s3client.FormatError(err))
		}
		return nil, nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	return artifact.NewS3Sink(client, a.cfg.S3.URLExpiry), disk, nil
}
