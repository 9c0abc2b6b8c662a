// Package source builds Subjects lazily from container files.
//
// A Source is created from a declarative descriptor. All configuration checks
// happen when the Source is created, without opening the container:
//
//  1. the descriptor has a path, keys and labels
//  2. every key has exactly one label
//  3. every key has exactly one internal location (hdfpath)
//  4. the path, after ~ expansion, is an existing file or directory
//
// The container is only opened by Materialize, which reads every channel and
// returns a fresh Subject on each call.
//
// Example:
//
//	src, err := source.New(
//	    source.With("path", "~/data/subj01.h5"),
//	    source.With("keys", []string{"t1", "mask"}),
//	    source.With("hdfpath", []string{"/scan/t1", "/scan/seg"}),
//	    source.With("labels", []subject.ImageType{subject.Intensity, subject.Label}),
//	    source.With("age", 45),
//	)
//	if err != nil {
//	    return err
//	}
//	subj, err := src.Materialize()
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"voxelprep/pkg/container"
	_ "voxelprep/pkg/container/netcdf" // HDF5 and NetCDF backend
	"voxelprep/pkg/errors"
	"voxelprep/pkg/logging"
	"voxelprep/pkg/subject"
)

// Descriptor field names.
const (
	FieldPath    = "path"
	FieldKeys    = "keys"
	FieldHDFPath = "hdfpath"
	FieldLabels  = "labels"
)

// Descriptor is the typed form of a subject description, as found in manifests.
type Descriptor struct {
	// Path is the container file or directory
	Path string `yaml:"path"`

	// Keys are the channel names, in order
	Keys []string `yaml:"keys"`

	// HDFPath holds the internal container location of each channel
	HDFPath []string `yaml:"hdfpath"`

	// Labels holds the semantic type of each channel
	Labels []subject.ImageType `yaml:"labels"`

	// Metadata is passed through unvalidated (age, name, site...)
	Metadata map[string]interface{} `yaml:"metadata,omitempty"`
}

// Source is a validated, not yet materialized subject. It is read-only after
// construction.
type Source struct {
	path      string
	keys      []string
	locations []string
	labels    []subject.ImageType
	metadata  map[string]interface{}

	open container.Opener
}

// Item is one constructor argument of New: either the descriptor mapping or a
// single keyword item.
type Item func(*items)

type items struct {
	keywords map[string]interface{}
	mappings []map[string]interface{}
}

// FromMapping passes a whole descriptor mapping. At most one is allowed.
func FromMapping(m map[string]interface{}) Item {
	return func(it *items) { it.mappings = append(it.mappings, m) }
}

// With passes a single descriptor item. Entries of a FromMapping mapping take
// precedence over keyword items with the same key.
func With(key string, value interface{}) Item {
	return func(it *items) { it.keywords[key] = value }
}

// New validates a descriptor given as a mapping and/or keyword items.
func New(args ...Item) (*Source, error) {
	it := &items{keywords: map[string]interface{}{}}
	for _, arg := range args {
		arg(it)
	}
	if len(it.mappings) > 1 {
		return nil, errors.Configurationf("only one mapping argument is allowed, got %d", len(it.mappings))
	}

	fields := it.keywords
	if len(it.mappings) == 1 {
		for k, v := range it.mappings[0] {
			fields[k] = v
		}
	}

	for _, required := range []string{FieldPath, FieldKeys, FieldLabels} {
		if _, ok := fields[required]; !ok {
			return nil, errors.Configurationf("subject source needs a path, keys for the container, and labels (missing %q)", required)
		}
	}

	var (
		d   Descriptor
		err error
	)
	if d.Path, err = parsePath(fields[FieldPath]); err != nil {
		return nil, err
	}
	if d.Keys, err = parseStrings(FieldKeys, fields[FieldKeys]); err != nil {
		return nil, err
	}
	if d.Labels, err = parseLabels(fields[FieldLabels]); err != nil {
		return nil, err
	}
	if v, ok := fields[FieldHDFPath]; ok {
		if d.HDFPath, err = parseStrings(FieldHDFPath, v); err != nil {
			return nil, err
		}
	}
	for k, v := range fields {
		switch k {
		case FieldPath, FieldKeys, FieldHDFPath, FieldLabels:
		default:
			if d.Metadata == nil {
				d.Metadata = map[string]interface{}{}
			}
			d.Metadata[k] = v
		}
	}
	return build(d)
}

// NewFromDescriptor validates a typed descriptor. A nil Keys or Labels slice
// counts as missing.
func NewFromDescriptor(d Descriptor) (*Source, error) {
	var missing []string
	if d.Path == "" {
		missing = append(missing, FieldPath)
	}
	if d.Keys == nil {
		missing = append(missing, FieldKeys)
	}
	if d.Labels == nil {
		missing = append(missing, FieldLabels)
	}
	if len(missing) > 0 {
		return nil, errors.Configurationf("subject source needs a path, keys for the container, and labels (missing %s)",
			strings.Join(missing, ", "))
	}
	for i, l := range d.Labels {
		if !l.Valid() {
			return nil, errors.Configurationf("label %d is not a recognized image type: %v", i, l)
		}
	}
	return build(d)
}

// build runs the length and path checks shared by both constructors and copies
// the descriptor so later changes by the caller cannot leak in.
func build(d Descriptor) (*Source, error) {
	if len(d.Keys) != len(d.Labels) {
		return nil, errors.Configurationf("every image needs a label: %d keys, %d labels", len(d.Keys), len(d.Labels))
	}
	if len(d.Keys) != len(d.HDFPath) {
		return nil, errors.Configurationf("every image needs a path: %d keys, %d hdfpath entries", len(d.Keys), len(d.HDFPath))
	}
	resolved, err := resolvePath(d.Path)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]interface{}, len(d.Metadata))
	for k, v := range d.Metadata {
		meta[k] = v
	}
	return &Source{
		path:      resolved,
		keys:      append([]string(nil), d.Keys...),
		locations: append([]string(nil), d.HDFPath...),
		labels:    append([]subject.ImageType(nil), d.Labels...),
		metadata:  meta,
		open:      container.Open,
	}, nil
}

// resolvePath expands ~ and makes path absolute. The result must be an existing
// regular file or directory; directories hold multi-file containers.
func resolvePath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", errors.Pathf("conversion to path not possible for %q: %v", path, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Pathf("conversion to path not possible for %q: %v", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !(info.Mode().IsRegular() || info.IsDir()) {
		return "", errors.Pathf("file not found: %s", abs)
	}
	return abs, nil
}

func parsePath(v interface{}) (string, error) {
	switch p := v.(type) {
	case string:
		return p, nil
	case fmt.Stringer:
		return p.String(), nil
	default:
		return "", errors.Configurationf("%s must be a string, got %T", FieldPath, v)
	}
}

func parseStrings(field string, v interface{}) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, len(list))
		for i, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, errors.Configurationf("%s[%d] must be a string, got %T", field, i, e)
			}
			out[i] = s
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.Configurationf("%s must be a list of strings, got %T", field, v)
	}
}

func parseLabel(i int, v interface{}) (subject.ImageType, error) {
	switch l := v.(type) {
	case subject.ImageType:
		if !l.Valid() {
			return subject.Unknown, errors.Configurationf("%s[%d] is not a recognized image type: %v", FieldLabels, i, l)
		}
		return l, nil
	case string:
		t, err := subject.ParseImageType(l)
		if err != nil {
			return subject.Unknown, errors.Configurationf("%s[%d]: %v", FieldLabels, i, err)
		}
		return t, nil
	default:
		return subject.Unknown, errors.Configurationf("%s[%d] must be an image type, got %T", FieldLabels, i, v)
	}
}

func parseLabels(v interface{}) ([]subject.ImageType, error) {
	var raw []interface{}
	switch list := v.(type) {
	case []subject.ImageType:
		for _, l := range list {
			raw = append(raw, l)
		}
	case []string:
		for _, l := range list {
			raw = append(raw, l)
		}
	case []interface{}:
		raw = list
	case nil:
	default:
		return nil, errors.Configurationf("%s must be a list of image types, got %T", FieldLabels, v)
	}

	out := make([]subject.ImageType, len(raw))
	for i, e := range raw {
		t, err := parseLabel(i, e)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// Materialize opens the container, reads every channel, reverses each array's
// axis order into pipeline order and returns a new Subject keyed by channel
// name. The container is closed before Materialize returns, also on failure.
// Each call reads the container again.
func (s *Source) Materialize() (subj *subject.Subject, err error) {
	r, err := s.open(s.path)
	if err != nil {
		if errors.IsIO(err) {
			return nil, err
		}
		return nil, errors.WrapIO(err, "cannot open container %s", s.path)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			subj, err = nil, errors.WrapIO(cerr, "closing container %s", s.path)
		}
	}()

	log := logging.L()
	out := subject.New()
	for i, key := range s.keys {
		arr, err := r.Read(s.locations[i])
		if err != nil {
			if !errors.IsKeyLookup(err) && !errors.IsIO(err) {
				err = errors.WrapIO(err, "reading %q", s.locations[i])
			}
			return nil, errors.Wrapf(err, "channel %q of %s", key, s.path)
		}
		arr = arr.Transpose()
		out.Set(key, subject.NewImage(arr, s.labels[i]))
		log.Debugw("read channel",
			logging.FieldPath, s.path,
			logging.FieldChannel, key,
			logging.FieldLocation, s.locations[i],
			logging.FieldShape, arr.Shape(),
			logging.FieldType, s.labels[i].String())
	}
	return out, nil
}

// Path returns the resolved absolute container path.
func (s *Source) Path() string { return s.path }

// Keys returns the channel names.
func (s *Source) Keys() []string { return append([]string(nil), s.keys...) }

// Locations returns the internal container location of each channel.
func (s *Source) Locations() []string { return append([]string(nil), s.locations...) }

// Labels returns the semantic type of each channel.
func (s *Source) Labels() []subject.ImageType {
	return append([]subject.ImageType(nil), s.labels...)
}

// Metadata returns a copy of the pass-through descriptor fields.
func (s *Source) Metadata() map[string]interface{} {
	m := make(map[string]interface{}, len(s.metadata))
	for k, v := range s.metadata {
		m[k] = v
	}
	return m
}

func (s *Source) String() string {
	return fmt.Sprintf("Source(Keys: (%s))", strings.Join(s.keys, ", "))
}
