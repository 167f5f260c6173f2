package convert

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"scenefx/internal/utils"
)

type FileEntry struct {
	Name   string
	Offset uint32
	Size   uint32
}

// PackageSource serves assets out of a .pkg archive held in memory.
type PackageSource struct {
	Version string
	files   map[string][]byte
}

func readPkgString(r io.Reader) (string, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return "", err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writePkgString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// OpenPkg reads a whole package file into memory.
func OpenPkg(pkgPath string) (*PackageSource, error) {
	utils.Debug("Unpacker: Opening package %s", pkgPath)
	data, err := os.ReadFile(pkgPath)
	if err != nil {
		return nil, err
	}
	return ReadPkg(bytes.NewReader(data))
}

// ReadPkg parses the package header and copies every entry out of r.
func ReadPkg(r io.ReadSeeker) (*PackageSource, error) {
	version, err := readPkgString(r)
	if err != nil {
		return nil, fmt.Errorf("package version: %w", err)
	}
	utils.Debug("Unpacker: Package Version: %s", version)

	var fileCount uint32
	if err := binary.Read(r, binary.LittleEndian, &fileCount); err != nil {
		return nil, fmt.Errorf("package file count: %w", err)
	}
	utils.Debug("Unpacker: File Count: %d", fileCount)

	entries := make([]FileEntry, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		name, err := readPkgString(r)
		if err != nil {
			return nil, fmt.Errorf("package entry %d: %w", i, err)
		}
		var offset, size uint32
		if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return nil, fmt.Errorf("package entry %s: %w", name, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("package entry %s: %w", name, err)
		}
		entries[i] = FileEntry{Name: name, Offset: offset, Size: size}
	}

	dataStartPos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	pkg := &PackageSource{Version: version, files: make(map[string][]byte, len(entries))}
	for _, entry := range entries {
		if _, err := r.Seek(dataStartPos+int64(entry.Offset), io.SeekStart); err != nil {
			return nil, err
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("package entry %s: %w", entry.Name, err)
		}
		pkg.files[utils.CleanName(entry.Name)] = buf
	}

	utils.Debug("Unpacker: Loaded %d entries", len(pkg.files))
	return pkg, nil
}

// WritePkg writes files in the package layout, entries sorted by name.
func WritePkg(w io.Writer, version string, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := writePkgString(w, version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(names))); err != nil {
		return err
	}

	var offset uint32
	for _, name := range names {
		size := uint32(len(files[name]))
		if err := writePkgString(w, name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, offset); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, size); err != nil {
			return err
		}
		offset += size
	}

	for _, name := range names {
		if _, err := w.Write(files[name]); err != nil {
			return err
		}
	}
	return nil
}

func (p *PackageSource) ReadFile(name string) ([]byte, error) {
	name = utils.CleanName(name)
	data, ok := p.files[name]
	if !ok {
		return nil, &utils.MissingResourceError{Name: name, Tried: []string{"pkg:" + name}}
	}
	return data, nil
}

// Names lists the package entries in sorted order.
func (p *PackageSource) Names() []string {
	names := make([]string, 0, len(p.files))
	for k := range p.files {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
