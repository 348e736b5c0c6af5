package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/soaringjerry/MoodMetrics/internal/utils"
)

// ExportLongCSV renders classified answers one per row.
func ExportLongCSV(answers []ClassifiedAnswer) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "user_id", "department", "question_id", "dimension", "value", "submitted_at"})
	for _, a := range answers {
		rec := []string{
			a.ResponseID,
			a.UserID,
			a.Department,
			a.QuestionID,
			string(a.Dimension),
			strconv.FormatFloat(a.Value, 'f', -1, 64),
			a.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportZonesCSV renders the full department ranking.
func ExportZonesCSV(zones []Zone) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"department", "factor", "score", "status"})
	for _, z := range zones {
		if err := w.Write([]string{z.Department, z.Factor, strconv.Itoa(z.Score), string(z.Status)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportWorkbook renders a dashboard report as an xlsx workbook with one
// sheet per section. Sheet names follow the report locale.
func ExportWorkbook(r *DashboardReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	metrics := utils.T(r.Locale, "export.sheet.metrics")
	if err := f.SetSheetName("Sheet1", metrics); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	m := r.Metrics
	if err := writeRows(f, metrics, [][]any{
		{"metric", "value", "status"},
		{"wellbeingIndex", m.WellbeingIndex.Overall, string(m.WellbeingIndex.Status)},
		{"burnoutRisk", m.BurnoutRisk.Value, string(m.BurnoutRisk.Status)},
		{"tensionConflicts", m.TensionConflicts.Value, string(m.TensionConflicts.Status)},
		{"surveyCoverage", m.SurveyCoverage.Value, m.SurveyCoverage.Period},
		{"generatedAt", r.GeneratedAt.UTC().Format(time.RFC3339), ""},
	}); err != nil {
		return nil, err
	}

	dyn := [][]any{{"week", "value"}}
	for _, p := range r.Dynamics {
		dyn = append(dyn, []any{p.Week, p.Value})
	}
	zones := [][]any{{"department", "factor", "score", "status"}}
	for _, z := range r.Zones {
		zones = append(zones, []any{z.Department, z.Factor, z.Score, string(z.Status)})
	}
	recs := [][]any{{"department", "issue", "action", "status"}}
	for _, rec := range r.Recommendations {
		recs = append(recs, []any{rec.Department, rec.Issue, rec.Action, string(rec.Status)})
	}
	answers := [][]any{{"response_id", "user_id", "department", "question_id", "dimension", "value", "submitted_at"}}
	for _, a := range r.Answers {
		answers = append(answers, []any{a.ResponseID, a.UserID, a.Department, a.QuestionID, string(a.Dimension),
			a.Value, a.SubmittedAt.UTC().Format(time.RFC3339)})
	}

	for _, sheet := range []struct {
		key  string
		rows [][]any
	}{
		{"export.sheet.dynamics", dyn},
		{"export.sheet.zones", zones},
		{"export.sheet.recommendations", recs},
		{"export.sheet.answers", answers},
	} {
		name := utils.T(r.Locale, sheet.key)
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("add sheet %s: %w", name, err)
		}
		if err := writeRows(f, name, sheet.rows); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
