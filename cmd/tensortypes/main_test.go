package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/born-ml/tensortypes/internal/check"
	"github.com/born-ml/tensortypes/internal/safetensors"
	"github.com/born-ml/tensortypes/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const manifestYAML = `
types:
  - name: TokenizedInput
    kind: int64
    dims: [batch_size, sequence_length]
    tensors: [input_ids]
  - name: EmbeddedInput
    kind: float32
    dims: [batch_size, sequence_length, model_dim]
    tensors: [embeddings]
`

type fixture struct {
	dir      string
	manifest string
	model    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		manifest: filepath.Join(dir, "types.yaml"),
		model:    filepath.Join(dir, "model.safetensors"),
	}
	require.NoError(t, os.WriteFile(f.manifest, []byte(manifestYAML), 0o600))

	ids, err := tensor.Zeros(tensor.Shape{1, 8}, tensor.Int64)
	require.NoError(t, err)
	emb, err := tensor.Zeros(tensor.Shape{1, 8, 4}, tensor.Float32)
	require.NoError(t, err)
	require.NoError(t, safetensors.Write(f.model, map[string]*tensor.RawTensor{
		"input_ids":  ids,
		"embeddings": emb,
	}, nil))
	return f
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), t, &out, args...)
	return out.String(), err
}

func execute(ctx context.Context, t *testing.T, out io.Writer, args ...string) error {
	t.Helper()
	a := &app{newLogger: func(bool) (*zap.Logger, error) {
		return zaptest.NewLogger(t), nil
	}}
	root := newRootCmd(a)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCheckPasses(t *testing.T) {
	f := newFixture(t)
	out, err := run(t, "check", "-m", f.manifest,
		"--set", "batch_size=1", "--set", "sequence_length=8", "--set", "model_dim=4",
		f.model)
	require.NoError(t, err)
	assert.Contains(t, out, "2 tensors in 1 files: 2 ok, 0 mismatch, 0 unmatched, 0 errors")
}

func TestCheckFailsOnMismatch(t *testing.T) {
	f := newFixture(t)
	out, err := run(t, "check", "-m", f.manifest, "-f", "json",
		"--set", "batch_size=1", "--set", "sequence_length=8", "--set", "model_dim=16",
		f.model)
	assert.ErrorIs(t, err, errChecksFailed)

	var got struct {
		Results []check.Result `json:"results"`
		Summary check.Summary  `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Summary.Mismatch)
	assert.Equal(t, "embeddings", got.Results[0].Tensor)
	assert.Equal(t, check.StatusMismatch, got.Results[0].Status)
}

func TestCheckMissingParams(t *testing.T) {
	f := newFixture(t)
	_, err := run(t, "check", "-m", f.manifest, "--set", "batch_size=1", f.model)
	assert.ErrorContains(t, err, "missing parameters: model_dim, sequence_length")
}

func TestCheckReadsConfigFile(t *testing.T) {
	f := newFixture(t)
	cfg := filepath.Join(f.dir, "tensortypes.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
manifest: `+f.manifest+`
format: markdown
params:
  batch_size: 1
  sequence_length: 8
  model_dim: 4
`), 0o600))

	out, err := run(t, "--config", cfg, "check", f.model)
	require.NoError(t, err)
	assert.Contains(t, out, "| ")

	// Flags beat the file.
	_, err = run(t, "--config", cfg, "check", "--set", "model_dim=5", f.model)
	assert.ErrorIs(t, err, errChecksFailed)
}

func TestCheckWatch(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- execute(ctx, t, &out, "check", "--watch", "-m", f.manifest,
			"--set", "batch_size=1", "--set", "sequence_length=8", "--set", "model_dim=4",
			f.model)
	}()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "2 ok, 0 mismatch")
	}, 5*time.Second, 10*time.Millisecond)

	// Narrow the manifest so embeddings no longer match any type.
	require.NoError(t, os.WriteFile(f.manifest, []byte(`
types:
  - {name: TokenizedInput, kind: int64, dims: [batch_size, sequence_length], tensors: [input_ids]}
`), 0o600))
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "1 ok, 0 mismatch, 1 unmatched")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestCheckStrict(t *testing.T) {
	f := newFixture(t)
	m := filepath.Join(f.dir, "partial.yaml")
	require.NoError(t, os.WriteFile(m, []byte(`
types:
  - {name: TokenizedInput, kind: int64, dims: [1, 8], tensors: [input_ids]}
`), 0o600))

	_, err := run(t, "check", "-m", m, f.model)
	require.NoError(t, err)
	_, err = run(t, "check", "-m", m, "--strict", f.model)
	assert.ErrorIs(t, err, errChecksFailed)
}

func TestCheckNeedsManifestAndFiles(t *testing.T) {
	f := newFixture(t)
	_, err := run(t, "check", f.model)
	assert.ErrorContains(t, err, "no manifest")

	_, err = run(t, "check", "-m", f.manifest)
	assert.Error(t, err)
}

func TestParams(t *testing.T) {
	f := newFixture(t)
	out, err := run(t, "params", "-m", f.manifest, "-f", "json",
		"--set", "batch_size=2", "--set", "sequence_length=4096", "--set", "model_dim=512")
	require.NoError(t, err)

	var got struct {
		Params map[string]int `json:"params"`
		Types  []struct {
			Name  string `json:"name"`
			Shape []int  `json:"shape"`
		} `json:"types"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4096, got.Params["sequence_length"])
	require.Len(t, got.Types, 2)
	assert.Equal(t, []int{2, 4096, 512}, got.Types[1].Shape)
}

func TestParamsFromEnvironment(t *testing.T) {
	t.Setenv("TENSORTYPES_PARAMS__BATCH_SIZE", "3")
	out, err := run(t, "params", "--set", "model_dim=7")
	require.NoError(t, err)
	assert.Contains(t, out, "batch_size")
	assert.Contains(t, out, "model_dim")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "tensortypes "+Version+" ("+GitCommit+")\n", out)
}
