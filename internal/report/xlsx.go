package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheet = "Trials"

var xlsxHeaders = []string{
	"id", "seed", "scale", "index", "dim",
	"x_size", "x_steps", "y_size", "y_steps", "broadcast_shape",
	"x_numel", "x_contiguous", "x_order", "y_numel", "y_contiguous", "y_order",
	"random_value", "dtype", "device", "requires_grad", "attempts",
}

func joinInts[T int | int64](vs []T) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "x")
}

func (r Record) row() []any {
	return []any{
		r.ID, r.Seed, r.Scale, r.Index, r.Dim,
		joinInts(r.XSize), joinInts(r.XSteps), joinInts(r.YSize), joinInts(r.YSteps), joinInts(r.Broadcast),
		r.X.Numel, r.X.Contiguous, joinInts(r.X.Order), r.Y.Numel, r.Y.Contiguous, joinInts(r.Y.Order),
		r.RandomValue, r.DType, r.Device, r.RequiresGrad, r.Attempts,
	}
}

// WriteXLSX saves records to an XLSX workbook at path, one row per record
// below a header row.
func WriteXLSX(path string, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	if err := f.SetSheetRow(sheet, "A1", &xlsxHeaders); err != nil {
		return err
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := r.row()
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
