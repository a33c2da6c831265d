package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type modelParams struct {
	BatchSize      int `koanf:"batch_size"`
	SequenceLength int `koanf:"sequence_length"`
	ModelDim       int `koanf:"model_dim"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, t.TempDir(), "params.yaml", `
batch_size: 2
sequence_length: 64
model_dim: 128
`)
	t.Setenv("TTTEST_SEQUENCE_LENGTH", "100")
	t.Setenv("TTTEST_MODEL_DIM", "256")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("model-dim", 0, "")
	flags.Int("batch-size", 99, "")
	require.NoError(t, flags.Parse([]string{"--model-dim=512"}))

	p, err := Load[modelParams](Options{
		Defaults:  map[string]any{"batch_size": 1, "model_dim": 16},
		File:      path,
		EnvPrefix: "TTTEST_",
		Overrides: map[string]any{"sequence_length": 200},
		Flags:     flags,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, p.BatchSize, "file beats defaults, unchanged flag ignored")
	assert.Equal(t, 200, p.SequenceLength, "overrides beat environment")
	assert.Equal(t, 512, p.ModelDim, "changed flag beats everything")
}

func TestLoadDefaultsOnly(t *testing.T) {
	p, err := Load[modelParams](Options{Defaults: map[string]any{"batch_size": 4}})
	require.NoError(t, err)
	assert.Equal(t, &modelParams{BatchSize: 4}, p)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load[modelParams](Options{File: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.ErrorContains(t, err, "read config file")
}

func TestLoadStrict(t *testing.T) {
	path := writeFile(t, t.TempDir(), "typo.yaml", "batch_size: 2\nbatch_sise: 3\n")

	p, err := Load[modelParams](Options{File: path})
	require.NoError(t, err)
	assert.Equal(t, 2, p.BatchSize)

	_, err = Load[modelParams](Options{File: path, Strict: true})
	assert.ErrorContains(t, err, "batch_sise")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"TENSORTYPES_JOBS", "jobs"},
		{"TENSORTYPES_PARAMS__BATCH_SIZE", "params.batch_size"},
		{"TENSORTYPES_A__B__C", "a.b.c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EnvKey("TENSORTYPES_", tt.in), tt.in)
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := ParseAssignments("params", []string{"batch_size=8", " sequence_length = 100 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"params.batch_size":      8,
		"params.sequence_length": 100,
	}, got)

	for _, bad := range []string{"batch_size", "=3", "batch_size=x", "batch_size=8x"} {
		_, err := ParseAssignments("params", []string{bad})
		assert.ErrorIs(t, err, ErrAssignment, bad)
	}
}

func TestValues(t *testing.T) {
	v := Values{"sequence_length": 100, "batch_size": 1}
	assert.Equal(t, []string{"batch_size", "sequence_length"}, v.Names())
	assert.Equal(t, "batch_size=1 sequence_length=100", v.String())

	n, ok := v.Int("batch_size")
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	_, ok = v.Int("model_dim")
	assert.False(t, ok)

	assert.NoError(t, v.Validate())
	assert.ErrorContains(t, Values{"a": -1, "b": 2}.Validate(), "a=-1")
	assert.Equal(t, "", Values{}.String())
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", `
manifest: types.yaml
params:
  batch_size: 1
  sequence_length: 64
`)
	t.Setenv("TENSORTYPES_PARAMS__SEQUENCE_LENGTH", "100")

	flags := pflag.NewFlagSet("check", pflag.ContinueOnError)
	flags.String("format", "", "")
	flags.Int("jobs", 0, "")
	flags.StringArray("set", nil, "")
	require.NoError(t, flags.Parse([]string{"--format=json", "--set", "model_dim=512"}))

	set, err := flags.GetStringArray("set")
	require.NoError(t, err)

	s, used, err := LoadSettings(path, flags, set)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "types.yaml", s.Manifest)
	assert.Equal(t, "json", s.Format)
	assert.Equal(t, DefaultJobs, s.Jobs)
	assert.Equal(t, Values{"batch_size": 1, "sequence_length": 100, "model_dim": 512}, s.Params)
}

func TestLoadSettingsRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "neg.yaml", "params:\n  batch_size: -1\n")
	_, _, err := LoadSettings(path, nil, nil)
	assert.ErrorContains(t, err, "negative")

	path = writeFile(t, dir, "jobs.yaml", "jobs: 0\n")
	_, _, err = LoadSettings(path, nil, nil)
	assert.ErrorContains(t, err, "jobs")

	path = writeFile(t, dir, "typo.yaml", "manifets: types.yaml\n")
	_, _, err = LoadSettings(path, nil, nil)
	assert.ErrorContains(t, err, "manifets")

	_, _, err = LoadSettings(path, nil, []string{"oops"})
	assert.ErrorIs(t, err, ErrAssignment)
}

func TestFindFile(t *testing.T) {
	dir := t.TempDir()
	alt := writeFile(t, dir, "b.yml", "")
	assert.Equal(t, "x.yaml", FindFile("x.yaml", alt))
	assert.Equal(t, alt, FindFile("", filepath.Join(dir, "a.yaml"), alt))
	assert.Equal(t, "", FindFile("", filepath.Join(dir, "a.yaml")))
}
