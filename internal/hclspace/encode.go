package hclspace

import (
	"reflect"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/opfuzz/internal/param"
	"github.com/vk/opfuzz/internal/space"
	"github.com/vk/opfuzz/internal/tensor"
)

// Encode renders s as HCL. Expressions are written as the values they
// evaluated to, and tensor dtype, device and gradient flag are left to the
// loading side. Loading the result reproduces the parameters and tensor
// requests of s.
func Encode(s *space.Space) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	for i, p := range s.Parameters() {
		if i > 0 {
			body.AppendNewline()
		}
		encodeParameter(body.AppendNewBlock("parameter", []string{p.Name}).Body(), p)
	}
	for _, r := range s.Tensors() {
		body.AppendNewline()
		encodeTensor(body.AppendNewBlock("tensor", []string{r.Name}).Body(), r)
	}
	return hclwrite.Format(f.Bytes())
}

func encodeParameter(b *hclwrite.Body, p param.Parameter) {
	setHeader := func(dist string) {
		b.SetAttributeValue("distribution", cty.StringVal(dist))
		if p.Strict {
			b.SetAttributeValue("strict", cty.True)
		}
	}

	switch d := p.Dist.(type) {
	case param.Literal:
		setHeader(distLiteral)
		b.SetAttributeValue("value", cty.NumberIntVal(d.Value))
	case param.Uniform:
		setHeader(distUniform)
		b.SetAttributeValue("min", cty.NumberIntVal(d.Min))
		b.SetAttributeValue("max", cty.NumberIntVal(d.Max))
	case param.LogUniform:
		setHeader(distLogUniform)
		b.SetAttributeValue("min", cty.NumberIntVal(d.Min))
		b.SetAttributeValue("max", cty.NumberIntVal(d.Max))
	case param.Weighted:
		if values, ok := choiceValues(d); ok {
			setHeader(distChoice)
			b.SetAttributeValue("values", intList(values))
			return
		}
		setHeader(distWeighted)
		for _, o := range d.Outcomes {
			ob := b.AppendNewBlock("outcome", nil).Body()
			if o.Alias != "" {
				ob.SetAttributeValue("alias", cty.StringVal(o.Alias))
			} else {
				ob.SetAttributeValue("value", cty.NumberIntVal(o.Value))
			}
			ob.SetAttributeValue("weight", cty.NumberFloatVal(o.Weight))
		}
	}
}

// choiceValues reports whether w is exactly what param.UniformOver builds.
func choiceValues(w param.Weighted) ([]int64, bool) {
	values := make([]int64, len(w.Outcomes))
	for i, o := range w.Outcomes {
		if o.Alias != "" {
			return nil, false
		}
		values[i] = o.Value
	}
	return values, len(values) > 0 && reflect.DeepEqual(param.UniformOver(values), w)
}

func encodeTensor(b *hclwrite.Body, r tensor.Request) {
	b.SetAttributeValue("size", stringList(r.Size))
	if len(r.Steps) > 0 {
		b.SetAttributeValue("steps", stringList(r.Steps))
	}
	if r.DimParam != "" {
		b.SetAttributeValue("dim", cty.StringVal(r.DimParam))
	}
	b.SetAttributeValue("probability_contiguous", cty.NumberFloatVal(r.ProbabilityContiguous))
	for _, attr := range []struct {
		name string
		v    int64
	}{
		{"min_elements", r.MinElements},
		{"max_elements", r.MaxElements},
		{"max_allocation_bytes", r.MaxAllocationBytes},
	} {
		if attr.v != 0 {
			b.SetAttributeValue(attr.name, cty.NumberIntVal(attr.v))
		}
	}
}

func stringList(names []string) cty.Value {
	if len(names) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(names))
	for i, n := range names {
		vals[i] = cty.StringVal(n)
	}
	return cty.ListVal(vals)
}

func intList(values []int64) cty.Value {
	vals := make([]cty.Value, len(values))
	for i, v := range values {
		vals[i] = cty.NumberIntVal(v)
	}
	return cty.ListVal(vals)
}
