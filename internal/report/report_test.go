package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vk/opfuzz/internal/binary"
	"github.com/vk/opfuzz/internal/fuzzer"
	"github.com/vk/opfuzz/internal/testutil"
)

func records(t *testing.T, seed int64, scale binary.Scale, n int) []Record {
	t.Helper()
	f, err := binary.NewDefault(seed, scale)
	require.NoError(t, err)
	trials, err := f.Take(context.Background(), n)
	require.NoError(t, err)

	out := make([]Record, len(trials))
	for i, trial := range trials {
		out[i], err = NewRecord(seed, scale, trial)
		require.NoError(t, err)
	}
	return out
}

func TestTrialIDIsStable(t *testing.T) {
	a := TrialID(1, binary.Small, 3)
	assert.Equal(t, a, TrialID(1, binary.Small, 3))
	assert.Equal(t, 5, int(a.Version()))
	assert.NotEqual(t, a, TrialID(1, binary.Small, 4))
	assert.NotEqual(t, a, TrialID(2, binary.Small, 3))
	assert.NotEqual(t, a, TrialID(1, binary.Large, 3))
}

func TestNewRecord(t *testing.T) {
	recs := records(t, 17, binary.Medium, 20)
	again := records(t, 17, binary.Medium, 20)
	if diff := cmp.Diff(recs, again); diff != "" {
		t.Errorf("records differ between identical runs (-first +second):\n%s", diff)
	}

	for i, r := range recs {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, "medium", r.Scale)
		assert.Equal(t, "float32", r.DType)
		assert.Equal(t, "cpu", r.Device)
		assert.Len(t, r.XSize, r.Dim)
		assert.Equal(t, r.XSize, r.X.Shape)
		assert.Equal(t, r.YSize, r.Y.Shape)
		assert.Equal(t, r.XSize, r.Broadcast, "y never widens x")
		assert.GreaterOrEqual(t, r.X.Numel, int64(128))
		assert.NotNil(t, r.BroadcastAxes)
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	recs := records(t, 5, binary.Small, 10)

	var buf bytes.Buffer
	w := NewJSONLWriter(&buf)
	require.NoError(t, w.Write(recs...))
	require.NoError(t, w.Flush())

	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("\n")))
	assert.Contains(t, buf.String(), `"x_size":`)

	got := testutil.DecodeJSONLines[Record](t, &buf)
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Errorf("JSONL round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteXLSX(t *testing.T) {
	recs := records(t, 8, binary.Small, 5)
	path := filepath.Join(t.TempDir(), "trials.xlsx")
	require.NoError(t, WriteXLSX(path, recs))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Trials"}, f.GetSheetList())
	rows, err := f.GetRows("Trials")
	require.NoError(t, err)
	require.Len(t, rows, len(recs)+1)
	assert.Equal(t, xlsxHeaders, rows[0])
	assert.Equal(t, recs[0].ID, rows[1][0])
	assert.Equal(t, joinInts(recs[0].XSize), rows[1][5])
}

func TestSummarize(t *testing.T) {
	recs := []Record{
		{Dim: 1, BroadcastAxes: []int{}, X: Operand{Numel: 10, Contiguous: true}},
		{Dim: 2, BroadcastAxes: []int{1}, X: Operand{Numel: 20}},
		{Dim: 2, BroadcastAxes: []int{}, X: Operand{Numel: 30, Contiguous: true}},
		{Dim: 3, BroadcastAxes: []int{0, 2}, X: Operand{Numel: 40, Contiguous: true}},
	}

	s, err := Summarize(recs, fuzzer.Stats{Generated: 8, Rejected: 4})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Trials)
	assert.Equal(t, 0.5, s.RejectionRate)
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 1}, s.DimCounts)
	assert.Equal(t, 0.5, s.BroadcastRate)
	assert.InDelta(t, 3.0/8.0, s.AxisBroadcastRate, 1e-12)
	assert.Equal(t, 0.75, s.ContiguousRate)
	assert.Equal(t, 25.0, s.NumelMean)
	assert.Equal(t, 25.0, s.NumelMedian)
	assert.GreaterOrEqual(t, s.NumelP95, s.NumelMedian)
	assert.LessOrEqual(t, s.NumelP95, 40.0)

	empty, err := Summarize(nil, fuzzer.Stats{})
	require.NoError(t, err)
	assert.Zero(t, empty.Trials)
}
