// Package web serves the map builder UI.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bstardust/geomap/internal/adapter/photoset"
	"github.com/bstardust/geomap/internal/artifact"
	"github.com/bstardust/geomap/internal/config"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/bstardust/geomap/internal/mapbuild"
	"github.com/bstardust/geomap/internal/mapview"
	"github.com/hashicorp/go-multierror"
)

// Server is the web UI
type Server struct {
	builder   *mapbuild.Builder
	sink      artifact.Sink
	disk      *artifact.DiskSink
	locator   mapbuild.Locator
	maxUpload int64
	now       func() time.Time
}

// New creates the server. Maps are published to sink; when disk is not nil
// its maps are also served under /maps/. locator may be nil.
func New(builder *mapbuild.Builder, sink artifact.Sink, disk *artifact.DiskSink, locator mapbuild.Locator, cfg config.ServerConfig) *Server {
	maxUpload := cfg.MaxUploadMB << 20
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Server{
		builder:   builder,
		sink:      sink,
		disk:      disk,
		locator:   locator,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

// Handler returns the routes wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleBuild)
	mux.HandleFunc("GET /maps/{name}", s.handleMap)
	mux.HandleFunc("GET /test-location", s.handleTestLocation)
	mux.HandleFunc("GET /health", s.handleHealth)
	return logRequests(mux)
}

// ListenAndServe serves on addr until ctx is canceled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Web UI listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down web UI")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index", s.builder.Options())
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.message(w, http.StatusBadRequest, "Invalid Request", err.Error(), nil)
		return
	}

	mode, err := mapbuild.ParseMode(r.FormValue("mode"))
	if err != nil {
		s.message(w, http.StatusBadRequest, "Invalid Request", err.Error(), nil)
		return
	}

	builder := s.builder.WithOptions(mapview.Options{
		Cluster:    r.FormValue("cluster") == "1",
		Heatmap:    r.FormValue("heatmap") == "1",
		Measure:    r.FormValue("measure") == "1",
		Fullscreen: r.FormValue("fullscreen") == "1",
	})

	ctx := r.Context()
	var res *mapbuild.Result
	switch mode {
	case mapbuild.ModeCoords:
		points, perr := mapbuild.ParseCoordinates(r.Form["lat"], r.Form["lon"])
		if perr != nil {
			s.message(w, http.StatusBadRequest, "Invalid Coordinates", perr.Error(), nil)
			return
		}
		res, err = builder.FromCoordinates(ctx, points)
	case mapbuild.ModePlaces:
		res, err = builder.FromPlaces(ctx, r.Form["place"])
	case mapbuild.ModeImages:
		uploads, uerr := readUploads(r)
		if uerr != nil {
			s.message(w, http.StatusBadRequest, "Invalid Upload", uerr.Error(), nil)
			return
		}
		res, err = builder.FromImages(ctx, uploads)
	}

	var noGPS *mapbuild.NoGPSError
	switch {
	case errors.As(err, &noGPS):
		s.message(w, http.StatusUnprocessableEntity, "No GPS Data Found",
			"The images don't contain GPS coordinates.", noGPS.Files)
		return
	case errors.Is(err, mapbuild.ErrNoPoints):
		s.message(w, http.StatusUnprocessableEntity, "No Locations Provided",
			"Please provide at least one location.", nil)
		return
	case err != nil:
		logger.Error("Map build failed: %v", err)
		s.message(w, http.StatusInternalServerError, "Map Failed", err.Error(), nil)
		return
	}

	var buf bytes.Buffer
	if err := res.Render(&buf); err != nil {
		s.message(w, http.StatusInternalServerError, "Map Failed", err.Error(), nil)
		return
	}

	art, err := s.sink.Publish(ctx, artifact.NewName(s.now()), buf.Bytes())
	if err != nil {
		logger.Error("Publishing map failed: %v", err)
		s.message(w, http.StatusBadGateway, "Publishing Failed", err.Error(), nil)
		return
	}

	s.render(w, http.StatusOK, "result", resultPage{
		Locations: len(res.Points),
		TotalKm:   res.Distances.TotalKm,
		AverageKm: res.Distances.AverageKm,
		Link:      s.link(art),
		Unlocated: res.Unlocated,
		Warnings:  failureLines(res.Failures),
		Photos:    res.Extraction.Total,
		Located:   res.Extraction.Located,
	})
}

// link prefers the local /maps/ route over a file:// URL browsers refuse
// to follow from an http page.
func (s *Server) link(art *artifact.Artifact) string {
	if s.disk != nil && strings.HasPrefix(art.Location, "file://") {
		return "/maps/" + art.Name
	}
	return art.Location
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if s.disk == nil {
		http.NotFound(w, r)
		return
	}
	p, err := s.disk.Path(r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, p)
}

func (s *Server) handleTestLocation(w http.ResponseWriter, r *http.Request) {
	if s.locator == nil {
		s.message(w, http.StatusServiceUnavailable, "Location Unavailable", "Location detection is disabled.", nil)
		return
	}
	loc, err := s.locator.Locate(r.Context())
	if err != nil {
		s.message(w, http.StatusServiceUnavailable, "Location Unavailable", "Could not detect your location.", nil)
		return
	}
	s.render(w, http.StatusOK, "location", loc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"status":"ok"}`)
}

func readUploads(r *http.Request) (*photoset.Uploads, error) {
	uploads := photoset.NewUploads()
	if r.MultipartForm == nil {
		return uploads, nil
	}
	for _, fh := range r.MultipartForm.File["images"] {
		if fh.Filename == "" {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		uploads.Add(fh.Filename, data)
	}
	return uploads, nil
}

// failureLines splits the per-item problems of a build into one line each
func failureLines(err error) []string {
	if err == nil {
		return nil
	}
	var me *multierror.Error
	if !errors.As(err, &me) {
		return []string{err.Error()}
	}
	lines := make([]string, 0, len(me.Errors))
	for _, e := range me.Errors {
		lines = append(lines, e.Error())
	}
	return lines
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", rec.status).
			WithField("duration", time.Since(start).Round(time.Millisecond).String()).
			Debug("request")
	})
}
