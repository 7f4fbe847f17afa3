package photoset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"

	"github.com/bstardust/geomap/internal/fileinfo"
	"github.com/bstardust/geomap/internal/fshelper"
	"github.com/bstardust/geomap/internal/logger"
)

// MediaFile is one image in a source. Path is unique within the source.
type MediaFile struct {
	Path string
	Name string
	Size int64
}

// Source lists images and opens them for reading.
type Source interface {
	ListFiles() []*MediaFile
	OpenFile(path string) (io.ReadCloser, error)
}

type location struct {
	fsys fs.FS
	rel  string
}

// Set is a collection of images gathered from directories, zip archives and
// individual files.
type Set struct {
	fsyss []fshelper.NameFS
	files []*MediaFile
	index map[string]location
}

// New scans paths for images
func New(ctx context.Context, paths []string) (*Set, error) {
	fsyss, err := fshelper.ParsePath(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo source: %w", err)
	}

	s := &Set{
		fsyss: fsyss,
		index: make(map[string]location),
	}

	for _, fsys := range fsyss {
		if err := s.scan(ctx, fsys); err != nil {
			s.Close()
			return nil, err
		}
	}

	sort.Slice(s.files, func(i, j int) bool { return s.files[i].Path < s.files[j].Path })
	return s, nil
}

// scan walks one filesystem and indexes its images
func (s *Set) scan(ctx context.Context, fsys fshelper.NameFS) error {
	_, single := fsys.(*fshelper.FileFS)

	return fshelper.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() || fileinfo.IsHidden(p) {
			return nil
		}

		if fileinfo.IsVideoFile(p) {
			logger.Debug("Skipping video %s", p)
			return nil
		}

		if !fileinfo.IsImageFile(p) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn("Failed to get file info for %s: %v", p, err)
			return nil
		}

		key := path.Join(fsys.Name(), p)
		if single {
			key = p
		}
		if _, dup := s.index[key]; dup {
			return nil
		}

		s.index[key] = location{fsys: fsys, rel: p}
		s.files = append(s.files, &MediaFile{
			Path: key,
			Name: path.Base(p),
			Size: info.Size(),
		})
		return nil
	})
}

// ListFiles returns all images in path order
func (s *Set) ListFiles() []*MediaFile {
	return append([]*MediaFile(nil), s.files...)
}

// OpenFile opens an image by its Path
func (s *Set) OpenFile(p string) (io.ReadCloser, error) {
	loc, ok := s.index[p]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return loc.fsys.Open(loc.rel)
}

// Close releases archive handles
func (s *Set) Close() error {
	fshelper.CloseAll(s.fsyss)
	return nil
}

// Uploads is an in-memory source, used for images received over HTTP.
type Uploads struct {
	files []*MediaFile
	data  map[string][]byte
}

// NewUploads creates an empty upload set
func NewUploads() *Uploads {
	return &Uploads{data: make(map[string][]byte)}
}

// Add stores an uploaded image. Repeated names get a numeric suffix so every
// upload keeps its own entry.
func (u *Uploads) Add(name string, data []byte) *MediaFile {
	name = path.Base(name)
	key := name
	for i := 2; ; i++ {
		if _, taken := u.data[key]; !taken {
			break
		}
		key = fmt.Sprintf("%s (%d)", name, i)
	}

	u.data[key] = data
	f := &MediaFile{Path: key, Name: name, Size: int64(len(data))}
	u.files = append(u.files, f)
	return f
}

// Len returns the number of uploads
func (u *Uploads) Len() int {
	return len(u.files)
}

// ListFiles returns uploads in arrival order
func (u *Uploads) ListFiles() []*MediaFile {
	return append([]*MediaFile(nil), u.files...)
}

// OpenFile opens an upload by its Path
func (u *Uploads) OpenFile(p string) (io.ReadCloser, error) {
	data, ok := u.data[p]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
