package hclspace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/opfuzz/internal/binary"
	"github.com/vk/opfuzz/internal/param"
	"github.com/vk/opfuzz/internal/space"
	"github.com/vk/opfuzz/internal/tensor"
	"github.com/vk/opfuzz/internal/testutil"
)

const binarySpaceFile = "../../spaces/binary.hcl"

func loaderFor(t *testing.T, scale binary.Scale, attrs binary.Attributes) *Loader {
	t.Helper()
	l, err := binary.LimitsFor(scale)
	require.NoError(t, err)
	return NewLoader(Options{
		Variables:    l.Variables(),
		DType:        attrs.DType,
		Device:       attrs.Device,
		RequiresGrad: attrs.RequiresGrad,
	})
}

func assertSameSpace(t *testing.T, want, got *space.Space) {
	t.Helper()
	if diff := cmp.Diff(want.Parameters(), got.Parameters()); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Tensors(), got.Tensors()); diff != "" {
		t.Errorf("tensors mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want.Order(), got.Order())
}

func TestLoadBinarySpaceFileMatchesBuiltIn(t *testing.T) {
	attrs := binary.Attributes{DType: tensor.Float16, Device: tensor.CUDA, RequiresGrad: true}
	for _, scale := range []binary.Scale{binary.Small, binary.Medium, binary.Large} {
		t.Run(scale.String(), func(t *testing.T) {
			ctx, _ := testutil.Context(t)

			got, err := loaderFor(t, scale, attrs).Load(ctx, binarySpaceFile)
			require.NoError(t, err)

			limits, err := binary.LimitsFor(scale)
			require.NoError(t, err)
			want, err := binary.NewSpace(limits, attrs)
			require.NoError(t, err)

			assertSameSpace(t, want, got)
		})
	}
}

func TestLoadMergesFilesFromDirectories(t *testing.T) {
	ctx, logs := testutil.Context(t)
	root := testutil.WriteFiles(t, map[string]string{
		"a/size.hcl": `
parameter "n" {
  distribution = "uniform"
  min          = 1
  max          = floor(max_dim_size / 2)
}
`,
		"b/tensor.hcl": `
tensor "t" {
  size         = ["n"]
  max_elements = max(10, 20)
}
`,
		"b/notes.txt": `not hcl`,
	})

	s, err := NewLoader(Options{Variables: map[string]int64{"max_dim_size": 64}}).Load(ctx, filepath.Join(root, "a"), filepath.Join(root, "b"))
	require.NoError(t, err)

	p, ok := s.Parameter("n")
	require.True(t, ok)
	assert.Equal(t, param.Uniform{Min: 1, Max: 32}, p.Dist)
	assert.False(t, p.Strict)

	require.Len(t, s.Tensors(), 1)
	r := s.Tensors()[0]
	assert.Equal(t, "t", r.Name)
	assert.Equal(t, []string{"n"}, r.Size)
	assert.Equal(t, int64(20), r.MaxElements)
	assert.Equal(t, 1.0, r.ProbabilityContiguous)
	assert.Contains(t, logs.String(), "HCL space loaded.")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
		wantIs  error
	}{
		{
			name:    "syntax error",
			src:     `parameter "a" {`,
			wantErr: "failed to parse HCL",
		},
		{
			name:    "unknown block",
			src:     `operator "add" {}`,
			wantErr: "failed to decode HCL",
		},
		{
			name: "unknown variable",
			src: `
parameter "a" {
  distribution = "literal"
  value = nope
}`,
			wantErr: "failed to decode HCL",
		},
		{
			name: "unknown distribution",
			src: `
parameter "a" {
  distribution = "gaussian"
}`,
			wantErr: `unknown distribution "gaussian"`,
		},
		{
			name: "literal without value",
			src: `
parameter "a" {
  distribution = "literal"
}`,
			wantErr: "literal requires value",
		},
		{
			name: "range without max",
			src: `
parameter "a" {
  distribution = "uniform"
  min = 1
}`,
			wantErr: "uniform requires min and max",
		},
		{
			name: "stray attribute",
			src: `
parameter "a" {
  distribution = "literal"
  value = 1
  min = 0
}`,
			wantErr: `"min" is not valid for a literal distribution`,
		},
		{
			name: "outcome with value and alias",
			src: `
parameter "b" {
  distribution = "literal"
  value        = 1
}

parameter "a" {
  distribution = "weighted"
  outcome {
    value  = 1
    alias  = "b"
    weight = 1
  }
}`,
			wantErr: "value and alias are mutually exclusive",
		},
		{
			name: "undeclared alias",
			src: `
parameter "a" {
  distribution = "weighted"
  outcome {
    alias  = "missing"
    weight = 1
  }
}`,
			wantErr: `undeclared parameter "missing"`,
			wantIs:  space.ErrInvalidSpace,
		},
		{
			name: "tensor reads undeclared parameter",
			src: `
tensor "t" {
  size = ["n"]
}`,
			wantErr: `reads undeclared parameter "n"`,
			wantIs:  space.ErrInvalidSpace,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader(Options{}).LoadBytes(context.Background(), []byte(tc.src), "test.hcl")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
			if tc.wantIs != nil {
				assert.ErrorIs(t, err, tc.wantIs)
			}
		})
	}

	t.Run("missing path", func(t *testing.T) {
		_, err := NewLoader(Options{}).Load(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"))
		assert.ErrorContains(t, err, "error accessing path")
	})

	t.Run("no files", func(t *testing.T) {
		_, err := NewLoader(Options{}).Load(context.Background(), t.TempDir())
		assert.ErrorContains(t, err, "no .hcl files found")
	})
}

func TestPow2RangeFunction(t *testing.T) {
	s, err := NewLoader(Options{Variables: map[string]int64{"lo": 5, "hi": 40}}).LoadBytes(context.Background(), []byte(`
parameter "p" {
  distribution = "choice"
  values       = pow2_range(lo, hi)
}`), "pow2.hcl")
	require.NoError(t, err)

	p, ok := s.Parameter("p")
	require.True(t, ok)
	assert.Equal(t, param.UniformOver([]int64{8, 16, 32}), p.Dist)
}
