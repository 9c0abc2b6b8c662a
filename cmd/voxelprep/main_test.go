package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelprep/pkg/config"
	"voxelprep/pkg/container"
	"voxelprep/pkg/source"
	"voxelprep/pkg/subject"
	"voxelprep/pkg/volume"
)

func writeSubject(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "subj01")
	arr := volume.Zeros(2, 3, 4)
	for i := range arr.Data() {
		arr.Data()[i] = float64(i)
	}
	require.NoError(t, container.WriteDetached(dir, "/scan/t1", arr, container.Header{}))
	require.NoError(t, container.WriteDetached(dir, "/scan/seg", arr, container.Header{DType: "uint8", Encoding: container.EncodingSnappy}))
	return dir
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Subjects = []source.Descriptor{{
		Path:     writeSubject(t),
		Keys:     []string{subject.ImageKey, subject.LabelKey},
		HDFPath:  []string{"/scan/t1", "/scan/seg"},
		Labels:   []subject.ImageType{subject.Intensity, subject.Label},
		Metadata: map[string]interface{}{"name": "subj01"},
	}}
	return cfg
}

func TestRunInspect(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runInspect(&out, testConfig(t)))

	text := out.String()
	assert.Contains(t, text, "subj01")
	assert.Contains(t, text, "Array(4x3x2)")
	assert.Contains(t, text, "intensity")
	assert.Contains(t, text, "label")
	assert.Contains(t, text, "random_flip")
	assert.Contains(t, text, "192 B")
}

func TestRunInspectMissingChannel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Subjects[0].HDFPath[1] = "/scan/missing"

	err := runInspect(&bytes.Buffer{}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject 0")
}

func TestPreviewWritesSlice(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "voxelprep.yaml")
	require.NoError(t, config.SaveConfig(testConfig(t), cfgPath))
	outDir := t.TempDir()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"preview", "-c", cfgPath, "-k", "label", "--axis", "x", "--out", outDir})
	require.NoError(t, rootCmd.Execute())

	want := filepath.Join(outDir, "subject_000", "label", "slice_x_002.jpg")
	_, err := os.Stat(want)
	assert.NoError(t, err)
	assert.Contains(t, out.String(), want)
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.yaml")
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"init-config", path})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Seed, cfg.Seed)
}
