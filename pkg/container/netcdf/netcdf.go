// Package netcdf is the HDF5 / NetCDF container backend. Importing it registers
// the .h5, .hdf, .hdf5, .he5 and .nc extensions with the container package.
//
// Internal locations are "/"-separated group paths ending in a variable name,
// for example "/scan/t1". Plain NetCDF (CDF) files have no groups, so their
// locations are bare variable names.
package netcdf

import (
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"voxelprep/pkg/container"
	"voxelprep/pkg/errors"
	"voxelprep/pkg/volume"
)

// Extensions handled by this backend.
var Extensions = []string{".h5", ".hdf", ".hdf5", ".he5", ".nc"}

func init() {
	for _, ext := range Extensions {
		container.Register(ext, Open)
	}
}

// Reader reads arrays from an open HDF5 or NetCDF file.
type Reader struct {
	path string
	root api.Group
}

// Open opens path read-only.
func Open(path string) (container.Reader, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, errors.WrapIO(err, "cannot open %s", path)
	}
	return NewReader(path, g), nil
}

// NewReader wraps an already open root group. The Reader takes ownership and
// closes g on Close.
func NewReader(path string, g api.Group) *Reader {
	return &Reader{path: path, root: g}
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

// Read implements container.Reader.
func (r *Reader) Read(location string) (*volume.Array, error) {
	if r.root == nil {
		return nil, errors.IOf("read %q from closed container %s", location, r.path)
	}

	var parts []string
	for _, p := range strings.Split(location, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil, errors.KeyLookupf("empty location %q in %s", location, r.path)
	}

	g := r.root
	for i, name := range parts[:len(parts)-1] {
		if !contains(g.ListSubgroups(), name) {
			return nil, errors.KeyLookupf("group %q of location %q not found in %s",
				"/"+strings.Join(parts[:i+1], "/"), location, r.path)
		}
		sub, err := g.GetGroup(name)
		if err != nil {
			return nil, errors.WrapIO(err, "opening group %q in %s", name, r.path)
		}
		g = sub
	}

	name := parts[len(parts)-1]
	if !contains(g.ListVariables(), name) {
		return nil, errors.KeyLookupf("location %q not found in %s", location, r.path)
	}
	v, err := g.GetVariable(name)
	if err != nil {
		return nil, errors.WrapIO(err, "reading %q from %s", location, r.path)
	}

	arr, err := volume.FromNested(v.Values)
	if err != nil {
		return nil, errors.WrapIO(err, "converting %q from %s", location, r.path)
	}
	return arr, nil
}

// Close implements container.Reader.
func (r *Reader) Close() error {
	if r.root != nil {
		r.root.Close()
		r.root = nil
	}
	return nil
}
