// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stardict

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ianlewis/go-dictzip"
)

// ResourceDir is the name of the resource directory next to the .ifo file.
const ResourceDir = "res"

var (
	idxExts  = []string{".idx", ".idx.gz", ".IDX", ".IDX.gz", ".IDX.GZ"}
	dictExts = []string{".dict", ".dict.dz", ".DICT", ".DICT.dz", ".DICT.DZ"}
	synExts  = []string{
		".syn", ".syn.gz", ".syn.dz",
		".SYN", ".SYN.gz", ".SYN.GZ", ".SYN.dz", ".SYN.DZ",
	}
)

// IsIfo reports whether name has an .ifo extension.
func IsIfo(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".ifo" || ext == ".IFO"
}

// BaseName returns the .ifo path without its extension.
func BaseName(ifoPath string) string {
	return strings.TrimSuffix(ifoPath, filepath.Ext(ifoPath))
}

// FindIfo walks root and returns every .ifo file found beneath it. Entries
// that cannot be read are reported in the error slice as *fs.PathError
// carrying the entry's path and skipped. An error
// reading root itself is returned as the only error with no paths.
func FindIfo(root string) ([]string, []error) {
	if _, err := os.Stat(root); err != nil {
		return nil, []error{fmt.Errorf("reading %q: %w", root, err)}
	}

	var paths []string
	var errs []error
	if err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			var pathErr *fs.PathError
			if !errors.As(err, &pathErr) || pathErr.Path != path {
				err = &fs.PathError{Op: "walk", Path: path, Err: err}
			}
			errs = append(errs, err)
			return nil
		}
		if !d.IsDir() && IsIfo(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		errs = append(errs, err)
	}
	return paths, errs
}

// findCompanion returns the first existing file named base+ext.
func findCompanion(ifoPath string, exts []string) (string, error) {
	base := BaseName(ifoPath)
	for _, ext := range exts {
		p := base + ext
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %q: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w: %s{%s}", fs.ErrNotExist, base, strings.Join(exts, ","))
}

// gzipReadCloser closes both the gzip stream and the file under it.
type gzipReadCloser struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipReadCloser) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}

func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".dz":
		z, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening %q: %w", path, err)
		}
		return &gzipReadCloser{Reader: z, f: f}, nil
	default:
		return f, nil
	}
}

// OpenIdx opens the .idx file belonging to ifoPath, decompressing it if
// needed.
func OpenIdx(ifoPath string) (io.ReadCloser, error) {
	p, err := findCompanion(ifoPath, idxExts)
	if err != nil {
		return nil, fmt.Errorf("opening .idx: %w", err)
	}
	return openMaybeGzip(p)
}

// OpenSyn opens the optional .syn file belonging to ifoPath. The error wraps
// fs.ErrNotExist when the dictionary has no synonyms.
func OpenSyn(ifoPath string) (io.ReadCloser, error) {
	p, err := findCompanion(ifoPath, synExts)
	if err != nil {
		return nil, fmt.Errorf("opening .syn: %w", err)
	}
	return openMaybeGzip(p)
}

// DictFile is an open .dict file supporting random access.
type DictFile interface {
	io.ReaderAt
	io.Closer
}

type dictzipFile struct {
	*dictzip.Reader
	f *os.File
}

func (d *dictzipFile) Close() error {
	err := d.Reader.Close()
	if cerr := d.f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = errors.Join(err, cerr)
	}
	return err
}

// OpenDict opens the .dict file belonging to ifoPath. Dictzip compressed
// files are read with random access.
func OpenDict(ifoPath string) (DictFile, error) {
	p, err := findCompanion(ifoPath, dictExts)
	if err != nil {
		return nil, fmt.Errorf("opening .dict: %w", err)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", p, err)
	}
	if strings.ToLower(filepath.Ext(p)) != ".dz" {
		return f, nil
	}
	z, err := dictzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening %q: %w", p, err)
	}
	return &dictzipFile{Reader: z, f: f}, nil
}

// Resource is a file in the resource directory.
type Resource struct {
	// Name is the slash separated path relative to the resource directory.
	Name string
	Size int64
}

// Resources lists the regular files under the resource directory of
// ifoPath. A missing directory yields no resources.
func Resources(ifoPath string) ([]Resource, error) {
	dir := filepath.Join(filepath.Dir(ifoPath), ResourceDir)
	var out []Resource
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, Resource{Name: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing resources in %q: %w", dir, err)
	}
	return out, nil
}

// ResourcePath returns the file system path of the named resource.
func ResourcePath(ifoPath, name string) string {
	return filepath.Join(filepath.Dir(ifoPath), ResourceDir, filepath.FromSlash(name))
}
