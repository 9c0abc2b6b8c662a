// Package subject holds the data model for one training sample: a Subject maps
// channel names to Images (array data plus a semantic type) or to raw values.
package subject

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelprep/pkg/volume"
)

// ImageType is the semantic role of a channel's data.
type ImageType int

const (
	// Unknown is the zero value and is never valid for an Image.
	Unknown ImageType = iota

	// Intensity is a scanner intensity volume (T1, T2, CT...).
	Intensity

	// Label is a label or segmentation mask.
	Label

	// DVF is a displacement vector field.
	DVF
)

// String returns the lower-case name used in manifests.
func (t ImageType) String() string {
	switch t {
	case Intensity:
		return "intensity"
	case Label:
		return "label"
	case DVF:
		return "dvf"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Valid reports whether t is one of the recognized types.
func (t ImageType) Valid() bool {
	return t == Intensity || t == Label || t == DVF
}

// ParseImageType parses a type name case-insensitively.
func ParseImageType(s string) (ImageType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "intensity":
		return Intensity, nil
	case "label":
		return Label, nil
	case "dvf":
		return DVF, nil
	default:
		return Unknown, fmt.Errorf("unknown image type %q (want intensity, label or dvf)", s)
	}
}

// MarshalYAML writes the type by name.
func (t ImageType) MarshalYAML() (interface{}, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid image type %d", int(t))
	}
	return t.String(), nil
}

// UnmarshalYAML reads the type by name.
func (t *ImageType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseImageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Image binds one channel's array data to its semantic type. Images are values;
// transforms that change the data store a new Image rather than mutating one.
type Image struct {
	// Data is the channel's array, in pipeline axis order
	Data *volume.Array

	// Type is the semantic role of Data
	Type ImageType
}

// NewImage creates an Image. The shape of data is not validated here; shape
// consistency across channels is a Subject-level concern.
func NewImage(data *volume.Array, t ImageType) Image {
	return Image{Data: data, Type: t}
}

// WithData returns a copy of the Image holding data instead, keeping its type.
func (im Image) WithData(data *volume.Array) Image {
	return Image{Data: data, Type: im.Type}
}

func (im Image) String() string {
	return fmt.Sprintf("Image(%s, %v)", im.Type, im.Data)
}
