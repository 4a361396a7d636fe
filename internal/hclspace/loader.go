package hclspace

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/opfuzz/internal/ctxlog"
	"github.com/vk/opfuzz/internal/fsutil"
	"github.com/vk/opfuzz/internal/space"
	"github.com/vk/opfuzz/internal/tensor"
)

// Options are the caller-supplied parts of a loaded space.
type Options struct {
	// Variables are visible to every expression, e.g. max_dim_size.
	Variables map[string]int64

	DType        tensor.DataType
	Device       tensor.Device
	RequiresGrad bool
}

// Loader builds parameter spaces from HCL files.
type Loader struct {
	opts Options
}

// NewLoader creates a new HCL space loader.
func NewLoader(opts Options) *Loader {
	return &Loader{opts: opts}
}

// Load reads every .hcl file under paths, in the order given, and builds a
// single validated space from all declared blocks. Directories are walked
// recursively in lexical order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*space.Space, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL space loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	b := space.NewBuilder()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := l.decode(ctx, file, f.Body, b); err != nil {
			return nil, err
		}
	}
	return l.build(ctx, b)
}

// LoadBytes builds a space from a single in-memory HCL document.
func (l *Loader) LoadBytes(ctx context.Context, src []byte, filename string) (*space.Space, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL %s: %w", filename, diags)
	}
	b := space.NewBuilder()
	if err := l.decode(ctx, filename, f.Body, b); err != nil {
		return nil, err
	}
	return l.build(ctx, b)
}

func (l *Loader) decode(ctx context.Context, file string, body hcl.Body, b *space.Builder) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, evalContext(l.opts.Variables), &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	for _, pb := range root.Parameters {
		p, err := translateParameter(ctx, pb)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		b.Parameter(p)
	}
	for _, tb := range root.Tensors {
		b.Tensor(translateTensor(tb))
	}
	ctxlog.FromContext(ctx).Debug("Decoded HCL file.", "file", file, "parameters", len(root.Parameters), "tensors", len(root.Tensors))
	return nil
}

func (l *Loader) build(ctx context.Context, b *space.Builder) (*space.Space, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	s = s.WithTensorAttributes(l.opts.DType, l.opts.Device, l.opts.RequiresGrad)
	ctxlog.FromContext(ctx).Debug("HCL space loaded.", "parameters", len(s.Parameters()), "tensors", len(s.Tensors()))
	return s, nil
}
