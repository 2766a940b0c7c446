package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/afero"
)

// FileCollection is implemented by values that resolve to a set of paths.
type FileCollection interface {
	Paths() []string
}

// Paths is a plain FileCollection.
type Paths []string

func (p Paths) Paths() []string {
	return p
}

// toPaths normalizes a file-valued property. A single path becomes a zero or one element set;
// a collection passes through and a nil collection becomes empty.
func toPaths(value any) []string {
	if value == nil {
		return nil
	}
	if fc, ok := value.(FileCollection); ok {
		if isNilValue(reflect.ValueOf(fc)) {
			return nil
		}
		return fc.Paths()
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String:
		if v.String() == "" {
			return nil
		}
		return []string{v.String()}
	case reflect.Slice, reflect.Array:
		paths := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			if elem.Kind() == reflect.String {
				if s := elem.String(); s != "" {
					paths = append(paths, s)
				}
				continue
			}
			paths = append(paths, fmt.Sprint(elem.Interface()))
		}
		return paths
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return toPaths(v.Elem().Interface())
	default:
		return []string{fmt.Sprint(value)}
	}
}

func exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

func isDir(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// parentPath strips the last element of path without cleaning it,
// so "./build/out" yields "./build". It reports false when path has no parent.
func parentPath(path string) (string, bool) {
	trimmed := strings.TrimRight(path, "/"+string(filepath.Separator))
	if trimmed == "" {
		return "", false
	}
	idx := strings.LastIndexAny(trimmed, "/"+string(filepath.Separator))
	if idx < 0 {
		return "", false
	}
	if idx == 0 {
		return trimmed[:1], true
	}
	return trimmed[:idx], true
}

// firstNonDirectoryAncestor walks up from path's parent while ancestors are not directories
// and returns the first one that exists as something other than a directory.
func firstNonDirectoryAncestor(fs afero.Fs, path string) (string, bool) {
	for candidate, ok := parentPath(path); ok && !isDir(fs, candidate); candidate, ok = parentPath(candidate) {
		if exists(fs, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// canonicalize resolves path to an absolute, cleaned form. Only the OS file system shares the
// process working directory; on any other afero.Fs the path is only cleaned, so it stays the
// path that validation and fingerprinting see.
func canonicalize(fs afero.Fs, path string) (string, error) {
	if _, ok := fs.(*afero.OsFs); !ok {
		return filepath.Clean(path), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	return abs, nil
}

// mkdirs creates dir and any missing parents on fs.
func mkdirs(fs afero.Fs, dir string) error {
	abs, err := canonicalize(fs, dir)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(abs, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", abs, err)
	}
	return nil
}
