package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Source reads named assets. Names are slash separated and relative to the
// asset root, e.g. "shaders/fog.program".
type Source interface {
	ReadFile(name string) ([]byte, error)
}

// MissingResourceError reports an asset that none of the search locations holds.
type MissingResourceError struct {
	Name  string
	Tried []string
}

func (e *MissingResourceError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("missing resource %q", e.Name)
	}
	return fmt.Sprintf("missing resource %q (tried %s)", e.Name, strings.Join(e.Tried, ", "))
}

func (e *MissingResourceError) Unwrap() error { return fs.ErrNotExist }

// CleanName normalizes backslashes and redundant elements in an asset name.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// DirSource resolves names against an ordered list of directories. The first
// directory that holds the file wins.
type DirSource struct {
	Roots []string
}

func NewDirSource(roots ...string) *DirSource {
	var kept []string
	for _, r := range roots {
		if r != "" {
			kept = append(kept, r)
		}
	}
	return &DirSource{Roots: kept}
}

// Resolve returns the on-disk path of name, or a MissingResourceError.
func (s *DirSource) Resolve(name string) (string, error) {
	name = CleanName(name)
	tried := make([]string, 0, len(s.Roots))
	for _, root := range s.Roots {
		p := filepath.Join(root, filepath.FromSlash(name))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
		tried = append(tried, p)
	}
	return "", &MissingResourceError{Name: name, Tried: tried}
}

func (s *DirSource) ReadFile(name string) ([]byte, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingResourceError{Name: CleanName(name), Tried: []string{p}}
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	Debug("Assets: Read %s (%d bytes)", p, len(data))
	return data, nil
}

// MapSource serves assets from memory.
type MapSource map[string][]byte

func (m MapSource) ReadFile(name string) ([]byte, error) {
	name = CleanName(name)
	data, ok := m[name]
	if !ok {
		return nil, &MissingResourceError{Name: name}
	}
	return data, nil
}

// Names lists the stored asset names in sorted order.
func (m MapSource) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MultiSource tries each source in order and returns the first hit.
type MultiSource []Source

func (m MultiSource) ReadFile(name string) ([]byte, error) {
	var tried []string
	for _, s := range m {
		data, err := s.ReadFile(name)
		if err == nil {
			return data, nil
		}
		var missing *MissingResourceError
		if !errors.As(err, &missing) {
			return nil, err
		}
		tried = append(tried, missing.Tried...)
	}
	return nil, &MissingResourceError{Name: CleanName(name), Tried: tried}
}

var imageExtensions = []string{".tex", ".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".webp"}

// FindImage reads an image asset. Names without a known extension are tried
// with each supported extension, in order. The resolved name is returned.
func FindImage(src Source, name string) (string, []byte, error) {
	name = CleanName(name)
	ext := strings.ToLower(path.Ext(name))
	for _, known := range imageExtensions {
		if ext == known {
			data, err := src.ReadFile(name)
			return name, data, err
		}
	}

	var tried []string
	for _, e := range imageExtensions {
		candidate := name + e
		data, err := src.ReadFile(candidate)
		if err == nil {
			return candidate, data, nil
		}
		var missing *MissingResourceError
		if !errors.As(err, &missing) {
			return candidate, nil, err
		}
		tried = append(tried, candidate)
	}
	return name, nil, &MissingResourceError{Name: name, Tried: tried}
}
