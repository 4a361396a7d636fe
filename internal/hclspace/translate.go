package hclspace

import (
	"context"
	"fmt"

	"github.com/vk/opfuzz/internal/ctxlog"
	"github.com/vk/opfuzz/internal/param"
	"github.com/vk/opfuzz/internal/tensor"
)

// translateParameter converts a parameter block into a param.Parameter.
// Attributes that do not belong to the named distribution are rejected.
func translateParameter(ctx context.Context, pb *parameterBlock) (param.Parameter, error) {
	logger := ctxlog.FromContext(ctx).With("parameter", pb.Name, "distribution", pb.Distribution)
	logger.Debug("Translating HCL parameter.")

	p := param.Parameter{Name: pb.Name, Strict: pb.Strict != nil && *pb.Strict}

	allowed := map[string]bool{}
	switch pb.Distribution {
	case distLiteral:
		if pb.Value == nil {
			return p, fmt.Errorf("parameter %q: literal requires value", pb.Name)
		}
		allowed["value"] = true
		p.Dist = param.Literal{Value: *pb.Value}
	case distUniform, distLogUniform:
		if pb.Min == nil || pb.Max == nil {
			return p, fmt.Errorf("parameter %q: %s requires min and max", pb.Name, pb.Distribution)
		}
		allowed["min"], allowed["max"] = true, true
		if pb.Distribution == distUniform {
			p.Dist = param.Uniform{Min: *pb.Min, Max: *pb.Max}
		} else {
			p.Dist = param.LogUniform{Min: *pb.Min, Max: *pb.Max}
		}
	case distWeighted:
		allowed["outcome"] = true
		w := param.Weighted{}
		for i, ob := range pb.Outcomes {
			o, err := translateOutcome(ob)
			if err != nil {
				return p, fmt.Errorf("parameter %q: outcome %d: %w", pb.Name, i, err)
			}
			w.Outcomes = append(w.Outcomes, o)
		}
		p.Dist = w
	case distChoice:
		allowed["values"] = true
		p.Dist = param.UniformOver(pb.Values)
	default:
		return p, fmt.Errorf("parameter %q: unknown distribution %q", pb.Name, pb.Distribution)
	}

	for name, set := range map[string]bool{
		"value":   pb.Value != nil,
		"min":     pb.Min != nil,
		"max":     pb.Max != nil,
		"values":  pb.Values != nil,
		"outcome": len(pb.Outcomes) > 0,
	} {
		if set && !allowed[name] {
			return p, fmt.Errorf("parameter %q: %q is not valid for a %s distribution", pb.Name, name, pb.Distribution)
		}
	}
	return p, nil
}

func translateOutcome(ob *outcomeBlock) (param.Outcome, error) {
	switch {
	case ob.Value != nil && ob.Alias != nil:
		return param.Outcome{}, fmt.Errorf("value and alias are mutually exclusive")
	case ob.Alias != nil:
		return param.Alias(*ob.Alias, ob.Weight), nil
	case ob.Value != nil:
		return param.Value(*ob.Value, ob.Weight), nil
	}
	return param.Outcome{}, fmt.Errorf("one of value or alias is required")
}

// translateTensor converts a tensor block into a tensor.Request. Attributes
// are applied to the whole space once it is built.
func translateTensor(tb *tensorBlock) tensor.Request {
	r := tensor.Request{
		Name:                  tb.Name,
		Size:                  tb.Size,
		Steps:                 tb.Steps,
		ProbabilityContiguous: 1,
	}
	if tb.Dim != nil {
		r.DimParam = *tb.Dim
	}
	if tb.ProbabilityContiguous != nil {
		r.ProbabilityContiguous = *tb.ProbabilityContiguous
	}
	if tb.MinElements != nil {
		r.MinElements = *tb.MinElements
	}
	if tb.MaxElements != nil {
		r.MaxElements = *tb.MaxElements
	}
	if tb.MaxAllocationBytes != nil {
		r.MaxAllocationBytes = *tb.MaxAllocationBytes
	}
	return r
}
