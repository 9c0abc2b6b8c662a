package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"voxelprep/pkg/config"
	"voxelprep/pkg/errors"
	"voxelprep/pkg/logging"
	"voxelprep/pkg/source"
	"voxelprep/pkg/subject"
	"voxelprep/pkg/transform"
)

var noAugmentFlag bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Materialize every subject in the manifest and report its channels",
	Long: `Validate the manifest, read every channel of every subject and run the
configured transforms. Prints channel shapes, types, sizes and the flip
decision drawn for each subject.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd.OutOrStdout(), loadedConfig)
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&noAugmentFlag, "no-augment", false, "Skip the transform pipeline")
}

func runInspect(w io.Writer, cfg *config.Config) error {
	log := logging.L()

	sources, err := cfg.Sources()
	if err != nil {
		return err
	}
	pipeline, err := cfg.Pipeline()
	if err != nil {
		return err
	}
	rng := transform.NewRand(cfg.Seed)

	for i, src := range sources {
		start := time.Now()
		subj, err := src.Materialize()
		if err != nil {
			log.Errorw("Materialization failed",
				logging.FieldPath, src.Path(),
				logging.FieldKind, errors.Kind(err),
				logging.FieldError, err)
			return errors.Wrapf(err, "subject %d", i)
		}
		if !noAugmentFlag {
			if _, err := pipeline.Apply(subj, rng); err != nil {
				return errors.Wrapf(err, "subject %d", i)
			}
		}
		log.Infow("Subject ready",
			logging.FieldSubject, i,
			logging.FieldPath, src.Path(),
			"elapsed", time.Since(start))
		printSubject(w, i, src, subj)
	}
	return nil
}

func printSubject(w io.Writer, index int, src *source.Source, subj *subject.Subject) {
	fmt.Fprintf(w, "[%d] %s\n", index, src.Path())
	for _, key := range subj.Keys() {
		v, _ := subj.Get(key)
		if d, ok := v.(transform.FlipDecision); ok {
			fmt.Fprintf(w, "    %-12s flip x=%t y=%t z=%t\n", key, d[0], d[1], d[2])
			continue
		}
		arr, ok := subj.Array(key)
		if !ok {
			fmt.Fprintf(w, "    %-12s %v\n", key, v)
			continue
		}
		kind := "array"
		if im, ok := subj.Image(key); ok {
			kind = im.Type.String()
		}
		st := arr.Stats()
		fmt.Fprintf(w, "    %-12s %-10s %-16v %8s  min=%g max=%g mean=%.4g\n",
			key, kind, arr, humanize.Bytes(uint64(arr.Len())*8), st.Min, st.Max, st.Mean)
	}
	if md := src.Metadata(); len(md) > 0 {
		fmt.Fprintf(w, "    metadata     %v\n", md)
	}
}
