// Package report turns binary-op trials into flat records and writes them
// as JSON lines or an XLSX sheet, with summary statistics over a run.
package report
