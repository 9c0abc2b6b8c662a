package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"voxelprep/pkg/errors"
	"voxelprep/pkg/logging"
	"voxelprep/pkg/subject"
	"voxelprep/pkg/transform"
	"voxelprep/pkg/visualization"
)

var (
	previewSubject  int
	previewChannel  string
	previewAxis     string
	previewPosition int
	previewAll      bool
	previewAugment  bool
	previewOut      string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Save slices of one subject channel as JPEG images",
	Long: `Materialize one subject and write slices of one of its channels as JPEG
images. With --augment the configured transforms run first, which makes it
easy to check that flipped channels stay aligned.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().IntVarP(&previewSubject, "subject", "s", 0, "Index of the subject in the manifest")
	previewCmd.Flags().StringVarP(&previewChannel, "channel", "k", subject.ImageKey, "Channel key to render")
	previewCmd.Flags().StringVar(&previewAxis, "axis", "z", "Slicing axis (x, y or z)")
	previewCmd.Flags().IntVar(&previewPosition, "position", -1, "Slice index along the axis (default: middle)")
	previewCmd.Flags().BoolVar(&previewAll, "all", false, "Save every slice along the axis")
	previewCmd.Flags().BoolVar(&previewAugment, "augment", false, "Apply the transform pipeline before rendering")
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "preview", "Output directory")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg := loadedConfig
	sources, err := cfg.Sources()
	if err != nil {
		return err
	}
	if previewSubject < 0 || previewSubject >= len(sources) {
		return errors.Configurationf("subject index %d out of range, manifest has %d subjects",
			previewSubject, len(sources))
	}

	subj, err := sources[previewSubject].Materialize()
	if err != nil {
		return err
	}
	if previewAugment {
		pipeline, err := cfg.Pipeline()
		if err != nil {
			return err
		}
		if _, err := pipeline.Apply(subj, transform.NewRand(cfg.Seed)); err != nil {
			return err
		}
	}

	arr, ok := subj.Array(previewChannel)
	if !ok {
		return errors.KeyLookupf("subject %d has no channel %q (channels: %v)",
			previewSubject, previewChannel, subj.Keys())
	}
	viewer, err := visualization.NewViewer(arr)
	if err != nil {
		return err
	}

	dir := filepath.Join(previewOut, fmt.Sprintf("subject_%03d", previewSubject), previewChannel)
	if previewAll {
		if err := viewer.SaveSliceSequence(previewAxis, dir); err != nil {
			return err
		}
		logging.L().Infow("Saved slice sequence",
			logging.FieldChannel, previewChannel,
			logging.FieldPath, dir)
		return nil
	}

	position := previewPosition
	if position < 0 {
		position = middle(arr.Shape(), previewAxis)
	}
	img, err := viewer.ExtractSlice(previewAxis, position)
	if err != nil {
		return err
	}
	filename := filepath.Join(dir, fmt.Sprintf("slice_%s_%03d.jpg", previewAxis, position))
	if err := viewer.SaveSlice(img, filename); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), filename)
	return nil
}

func middle(shape []int, axis string) int {
	switch axis {
	case "x", "X":
		return shape[0] / 2
	case "y", "Y":
		return shape[1] / 2
	default:
		return shape[2] / 2
	}
}
