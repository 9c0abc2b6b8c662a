// Package container reads N-dimensional arrays out of container files.
//
// A container is anything that can be opened read-only and exposes named internal
// locations, each resolving to a dense numeric array. Backends register an
// Opener for the file extensions they understand; directories are always served
// by the detached backend, which stores one header plus payload file per location.
//
// Arrays are returned in on-disk axis order. Callers that need the pipeline
// order transpose them.
package container

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"voxelprep/pkg/errors"
	"voxelprep/pkg/volume"
)

// Reader gives access to the arrays inside one open container.
type Reader interface {
	// Read returns the array stored at location. A missing location is an
	// ErrKeyLookup error; any other failure is ErrIO.
	Read(location string) (*volume.Array, error)

	// Close releases the container. Reads after Close fail.
	Close() error
}

// Opener opens the container at path read-only.
type Opener func(path string) (Reader, error)

var (
	mu      sync.RWMutex
	openers = map[string]Opener{}
)

// Register makes opener available for files with extension ext (".h5", ".nc", ...).
// Registering an extension twice replaces the earlier opener.
func Register(ext string, opener Opener) {
	mu.Lock()
	defer mu.Unlock()
	openers[normalizeExt(ext)] = opener
}

// Extensions lists the registered file extensions.
func Extensions() []string {
	mu.RLock()
	defer mu.RUnlock()
	exts := make([]string, 0, len(openers))
	for ext := range openers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Open opens the container at path with the backend matching its type.
func Open(path string) (Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WrapIO(err, "cannot open container %s", path)
	}
	if info.IsDir() {
		d, err := OpenDetached(path)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	ext := normalizeExt(filepath.Ext(path))
	mu.RLock()
	opener, ok := openers[ext]
	mu.RUnlock()
	if !ok {
		return nil, errors.WithHint(
			errors.IOf("no container backend for %q files (%s)", ext, path),
			"registered extensions: "+strings.Join(Extensions(), " "))
	}

	r, err := opener(path)
	if err != nil {
		if errors.IsIO(err) {
			return nil, err
		}
		return nil, errors.WrapIO(err, "cannot open container %s", path)
	}
	return r, nil
}
