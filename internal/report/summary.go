package report

import (
	"github.com/montanaflynn/stats"

	"github.com/vk/opfuzz/internal/fuzzer"
)

// Summary aggregates a run.
type Summary struct {
	Trials        int         `json:"trials"`
	Generated     int         `json:"generated"`
	Rejected      int         `json:"rejected"`
	RejectionRate float64     `json:"rejection_rate"`
	DimCounts     map[int]int `json:"dim_counts"`
	// BroadcastRate is the share of trials where y broadcasts along at
	// least one axis; AxisBroadcastRate is the share of active axes.
	BroadcastRate     float64 `json:"broadcast_rate"`
	AxisBroadcastRate float64 `json:"axis_broadcast_rate"`
	ContiguousRate    float64 `json:"x_contiguous_rate"`
	NumelMean         float64 `json:"x_numel_mean"`
	NumelMedian       float64 `json:"x_numel_median"`
	NumelP95          float64 `json:"x_numel_p95"`
}

// Summarize computes a Summary over records. st carries the engine
// counters of the streams that produced them.
func Summarize(records []Record, st fuzzer.Stats) (Summary, error) {
	s := Summary{
		Trials:        len(records),
		Generated:     st.Generated,
		Rejected:      st.Rejected,
		RejectionRate: st.RejectionRate(),
		DimCounts:     make(map[int]int),
	}
	if len(records) == 0 {
		return s, nil
	}

	numel := make(stats.Float64Data, len(records))
	var broadcast, contiguous, axes, axesBroadcast float64
	for i, r := range records {
		s.DimCounts[r.Dim]++
		numel[i] = float64(r.X.Numel)
		if len(r.BroadcastAxes) > 0 {
			broadcast++
		}
		if r.X.Contiguous {
			contiguous++
		}
		axes += float64(r.Dim)
		axesBroadcast += float64(len(r.BroadcastAxes))
	}
	n := float64(len(records))
	s.BroadcastRate = broadcast / n
	s.ContiguousRate = contiguous / n
	if axes > 0 {
		s.AxisBroadcastRate = axesBroadcast / axes
	}

	var err error
	if s.NumelMean, err = numel.Mean(); err != nil {
		return s, err
	}
	if s.NumelMedian, err = numel.Median(); err != nil {
		return s, err
	}
	if s.NumelP95, err = numel.Percentile(95); err != nil {
		return s, err
	}
	return s, nil
}
