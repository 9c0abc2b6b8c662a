package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"gopkg.in/yaml.v3"

	"voxelprep/pkg/errors"
	"voxelprep/pkg/volume"
)

// Payload encodings for detached containers.
const (
	EncodingRaw    = "raw"
	EncodingSnappy = "snappy"
)

// Header describes one array in a detached container. It is stored as YAML next
// to the payload, similar to the MetaImage .mhd/.raw pair.
type Header struct {
	// Shape is the on-disk shape, slowest-varying axis first
	Shape []int `yaml:"shape"`

	// DType is the element type: float32, float64, int8, uint8, int16, uint16,
	// int32, uint32, int64 or uint64
	DType string `yaml:"dtype"`

	// ByteOrder is "little" (default) or "big"
	ByteOrder string `yaml:"byteOrder,omitempty"`

	// Encoding is EncodingRaw (default) or EncodingSnappy
	Encoding string `yaml:"encoding,omitempty"`

	// DataFile is the payload path relative to the header. Defaults to the
	// header name with a .raw extension.
	DataFile string `yaml:"dataFile,omitempty"`
}

// Detached is a directory container: location "/scan/t1" is described by
// <dir>/scan/t1.yaml and its payload file.
type Detached struct {
	dir    string
	closed bool
}

// OpenDetached opens the directory dir as a detached container.
func OpenDetached(dir string) (*Detached, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WrapIO(err, "cannot open detached container %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.IOf("detached container %s is not a directory", dir)
	}
	return &Detached{dir: dir}, nil
}

// headerPath maps a location to its header file, refusing locations that
// escape the container directory.
func (d *Detached) headerPath(location string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+location), "/")
	if clean == "" {
		return "", errors.KeyLookupf("empty location %q", location)
	}
	return filepath.Join(d.dir, filepath.FromSlash(clean)) + ".yaml", nil
}

// Read implements Reader.
func (d *Detached) Read(location string) (*volume.Array, error) {
	if d.closed {
		return nil, errors.IOf("read %q from closed container %s", location, d.dir)
	}
	hp, err := d.headerPath(location)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(hp)
	if os.IsNotExist(err) {
		return nil, errors.KeyLookupf("location %q not found in %s", location, d.dir)
	}
	if err != nil {
		return nil, errors.WrapIO(err, "reading header for %q", location)
	}

	var h Header
	if err := yaml.Unmarshal(raw, &h); err != nil {
		return nil, errors.WrapIO(err, "parsing header for %q", location)
	}

	dataFile := h.DataFile
	if dataFile == "" {
		dataFile = strings.TrimSuffix(filepath.Base(hp), ".yaml") + ".raw"
	}
	payload, err := os.ReadFile(filepath.Join(filepath.Dir(hp), dataFile))
	if err != nil {
		return nil, errors.WrapIO(err, "reading payload for %q", location)
	}

	arr, err := decode(h, payload)
	if err != nil {
		return nil, errors.WrapIO(err, "decoding %q", location)
	}
	return arr, nil
}

// Close implements Reader.
func (d *Detached) Close() error {
	d.closed = true
	return nil
}

func byteOrder(name string) (binary.ByteOrder, error) {
	switch strings.ToLower(name) {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q", name)
	}
}

func elementSize(dtype string) (int, error) {
	switch dtype {
	case "int8", "uint8":
		return 1, nil
	case "int16", "uint16":
		return 2, nil
	case "float32", "int32", "uint32":
		return 4, nil
	case "float64", "int64", "uint64":
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", dtype)
	}
}

func decode(h Header, payload []byte) (*volume.Array, error) {
	order, err := byteOrder(h.ByteOrder)
	if err != nil {
		return nil, err
	}
	size, err := elementSize(h.DType)
	if err != nil {
		return nil, err
	}

	switch h.Encoding {
	case "", EncodingRaw:
	case EncodingSnappy:
		if payload, err = snappy.Decode(nil, payload); err != nil {
			return nil, fmt.Errorf("snappy: %v", err)
		}
	default:
		return nil, fmt.Errorf("unknown encoding %q", h.Encoding)
	}

	n := 1
	for _, d := range h.Shape {
		n *= d
	}
	if len(payload) != n*size {
		return nil, fmt.Errorf("payload has %d bytes, shape %v of %s needs %d", len(payload), h.Shape, h.DType, n*size)
	}

	data := make([]float64, n)
	for i := range data {
		b := payload[i*size : (i+1)*size]
		switch h.DType {
		case "int8":
			data[i] = float64(int8(b[0]))
		case "uint8":
			data[i] = float64(b[0])
		case "int16":
			data[i] = float64(int16(order.Uint16(b)))
		case "uint16":
			data[i] = float64(order.Uint16(b))
		case "int32":
			data[i] = float64(int32(order.Uint32(b)))
		case "uint32":
			data[i] = float64(order.Uint32(b))
		case "float32":
			data[i] = float64(math.Float32frombits(order.Uint32(b)))
		case "int64":
			data[i] = float64(int64(order.Uint64(b)))
		case "uint64":
			data[i] = float64(order.Uint64(b))
		case "float64":
			data[i] = math.Float64frombits(order.Uint64(b))
		}
	}
	return volume.New(h.Shape, data)
}

func encode(h Header, arr *volume.Array) ([]byte, error) {
	order, err := byteOrder(h.ByteOrder)
	if err != nil {
		return nil, err
	}
	size, err := elementSize(h.DType)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(arr.Len() * size)
	b := make([]byte, size)
	for _, v := range arr.Data() {
		switch h.DType {
		case "int8":
			b[0] = byte(int8(v))
		case "uint8":
			b[0] = uint8(v)
		case "int16":
			order.PutUint16(b, uint16(int16(v)))
		case "uint16":
			order.PutUint16(b, uint16(v))
		case "int32":
			order.PutUint32(b, uint32(int32(v)))
		case "uint32":
			order.PutUint32(b, uint32(v))
		case "float32":
			order.PutUint32(b, math.Float32bits(float32(v)))
		case "int64":
			order.PutUint64(b, uint64(int64(v)))
		case "uint64":
			order.PutUint64(b, uint64(v))
		case "float64":
			order.PutUint64(b, math.Float64bits(v))
		}
		buf.Write(b)
	}

	switch h.Encoding {
	case "", EncodingRaw:
		return buf.Bytes(), nil
	case EncodingSnappy:
		return snappy.Encode(nil, buf.Bytes()), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", h.Encoding)
	}
}

// WriteDetached stores arr at location inside the directory container dir,
// creating directories as needed. h.Shape is taken from arr; the other header
// fields select the on-disk representation (float32, raw, little endian by default).
func WriteDetached(dir, location string, arr *volume.Array, h Header) error {
	d := &Detached{dir: dir}
	hp, err := d.headerPath(location)
	if err != nil {
		return err
	}

	h.Shape = arr.Shape()
	if h.DType == "" {
		h.DType = "float32"
	}
	if h.DataFile == "" {
		h.DataFile = strings.TrimSuffix(filepath.Base(hp), ".yaml") + ".raw"
	}

	payload, err := encode(h, arr)
	if err != nil {
		return fmt.Errorf("error encoding %q: %w", location, err)
	}
	header, err := yaml.Marshal(&h)
	if err != nil {
		return fmt.Errorf("error marshaling header for %q: %w", location, err)
	}

	if err := os.MkdirAll(filepath.Dir(hp), 0755); err != nil {
		return fmt.Errorf("error creating container directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(hp), h.DataFile), payload, 0644); err != nil {
		return fmt.Errorf("error writing payload for %q: %w", location, err)
	}
	if err := os.WriteFile(hp, header, 0644); err != nil {
		return fmt.Errorf("error writing header for %q: %w", location, err)
	}
	return nil
}
