package fshelper

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bstardust/geomap/internal/fileinfo"
)

// NameFS is a filesystem that has a name
type NameFS interface {
	fs.FS
	Name() string
}

// DirFS represents a directory filesystem with a name
type DirFS struct {
	fs.FS
	name string
}

// Name returns the name of the filesystem
func (d *DirFS) Name() string {
	return d.name
}

// ZipFS represents a zip filesystem with a name
type ZipFS struct {
	*zip.Reader
	name string
	rc   io.Closer
}

// Name returns the name of the filesystem
func (z *ZipFS) Name() string {
	return z.name
}

// Close closes the zip file
func (z *ZipFS) Close() error {
	if z.rc != nil {
		return z.rc.Close()
	}
	return nil
}

// FileFS exposes a single file of a directory as a filesystem whose root
// lists only that file.
type FileFS struct {
	dir  fs.FS
	file string
}

// Name returns the file's base name
func (f *FileFS) Name() string {
	return f.file
}

// Open opens the root or the file itself
func (f *FileFS) Open(name string) (fs.File, error) {
	if name != "." && name != f.file {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return f.dir.Open(name)
}

// ReadDir lists the root, which holds only the file
func (f *FileFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	info, err := fs.Stat(f.dir, f.file)
	if err != nil {
		return nil, err
	}
	return []fs.DirEntry{fs.FileInfoToDirEntry(info)}, nil
}

// ParsePath expands paths (globs allowed) into filesystems: directories,
// zip archives and individual image files.
func ParsePath(paths []string) ([]NameFS, error) {
	var fsyss []NameFS

	for _, path := range paths {
		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %s: %w", path, err)
		}

		if len(matches) == 0 {
			if _, err := os.Stat(path); err != nil {
				if os.IsNotExist(err) {
					return nil, fmt.Errorf("path does not exist: %s", path)
				}
				return nil, fmt.Errorf("error accessing path %s: %w", path, err)
			}
			matches = []string{path}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("error accessing path %s: %w", match, err)
			}

			switch {
			case info.IsDir():
				fsyss = append(fsyss, &DirFS{
					FS:   os.DirFS(match),
					name: filepath.Base(match),
				})
			case strings.HasSuffix(strings.ToLower(match), ".zip"):
				zipFS, err := OpenZip(match)
				if err != nil {
					return nil, fmt.Errorf("error opening zip file %s: %w", match, err)
				}
				fsyss = append(fsyss, zipFS)
			case fileinfo.IsImageFile(match):
				fsyss = append(fsyss, &FileFS{
					dir:  os.DirFS(filepath.Dir(match)),
					file: filepath.Base(match),
				})
			default:
				return nil, fmt.Errorf("unsupported file type: %s", match)
			}
		}
	}

	return fsyss, nil
}

// OpenZip opens a zip file and returns a filesystem
func OpenZip(path string) (*ZipFS, error) {
	zipFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening zip file: %w", err)
	}

	info, err := zipFile.Stat()
	if err != nil {
		zipFile.Close()
		return nil, fmt.Errorf("error getting zip file info: %w", err)
	}

	zipReader, err := zip.NewReader(zipFile, info.Size())
	if err != nil {
		zipFile.Close()
		return nil, fmt.Errorf("error creating zip reader: %w", err)
	}

	return &ZipFS{
		Reader: zipReader,
		name:   filepath.Base(path),
		rc:     zipFile,
	}, nil
}

// WalkDir walks a filesystem and calls the function for each file
func WalkDir(fsys fs.FS, root string, fn func(path string, d fs.DirEntry, err error) error) error {
	return fs.WalkDir(fsys, root, fn)
}

// CloseAll closes every filesystem that holds an open handle
func CloseAll(fsyss []NameFS) {
	for _, fsys := range fsyss {
		if c, ok := fsys.(io.Closer); ok {
			c.Close()
		}
	}
}
