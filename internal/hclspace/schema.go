package hclspace

// fileRoot is the top level of a space file.
type fileRoot struct {
	Parameters []*parameterBlock `hcl:"parameter,block"`
	Tensors    []*tensorBlock    `hcl:"tensor,block"`
}

type parameterBlock struct {
	Name         string          `hcl:"name,label"`
	Distribution string          `hcl:"distribution"`
	Strict       *bool           `hcl:"strict,optional"`
	Value        *int64          `hcl:"value,optional"`
	Min          *int64          `hcl:"min,optional"`
	Max          *int64          `hcl:"max,optional"`
	Values       []int64         `hcl:"values,optional"`
	Outcomes     []*outcomeBlock `hcl:"outcome,block"`
}

type outcomeBlock struct {
	Value  *int64  `hcl:"value,optional"`
	Alias  *string `hcl:"alias,optional"`
	Weight float64 `hcl:"weight"`
}

type tensorBlock struct {
	Name                  string   `hcl:"name,label"`
	Size                  []string `hcl:"size"`
	Steps                 []string `hcl:"steps,optional"`
	Dim                   *string  `hcl:"dim,optional"`
	ProbabilityContiguous *float64 `hcl:"probability_contiguous,optional"`
	MinElements           *int64   `hcl:"min_elements,optional"`
	MaxElements           *int64   `hcl:"max_elements,optional"`
	MaxAllocationBytes    *int64   `hcl:"max_allocation_bytes,optional"`
}

// Distribution names.
const (
	distLiteral    = "literal"
	distUniform    = "uniform"
	distLogUniform = "loguniform"
	distWeighted   = "weighted"
	distChoice     = "choice"
)
