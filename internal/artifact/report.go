package artifact

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
)

// #region report

// WriteReport writes the aggregate report as indented JSON.
func (s *Store) WriteReport(report *audit.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := writeBytesAtomic(s.ReportPath(report.Meta.RunID), data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteAggregate writes the report and the metrics table of one run as a
// unit. If either write fails neither file changes.
func (s *Store) WriteAggregate(report *audit.Report, rows []audit.MetricsRow) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	runID := report.Meta.RunID

	var b batch
	if err := b.addBytes(s.ReportPath(runID), data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := b.add(s.MetricsPath(runID), metricsWriter(rows)); err != nil {
		b.discard()
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := b.commit(); err != nil {
		return fmt.Errorf("write aggregate: %w", err)
	}
	return nil
}

// ReadReport loads the aggregate report of a run.
func (s *Store) ReadReport(runID string) (*audit.Report, error) {
	path := s.ReportPath(runID)
	data, err := readFile(KindReport, path)
	if err != nil {
		return nil, err
	}
	var report audit.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, &audit.MalformedRecordError{Path: path, Line: 1, Err: err}
	}
	return &report, nil
}

// #endregion report

// #region metrics

// MetricsHeader is the fixed column order of the metrics table.
var MetricsHeader = []string{"run_id", "question_id", "section", "spread_words", "gap_ratio", "short_responses"}

// WriteMetrics writes the metrics table as CSV. A nil gap ratio is an empty cell.
func (s *Store) WriteMetrics(runID string, rows []audit.MetricsRow) error {
	if err := writeAtomic(s.MetricsPath(runID), metricsWriter(rows)); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func metricsWriter(rows []audit.MetricsRow) func(w io.Writer) error {
	return func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(MetricsHeader); err != nil {
			return err
		}
		for _, r := range rows {
			gap := ""
			if r.GapRatio != nil {
				gap = strconv.FormatFloat(*r.GapRatio, 'f', -1, 64)
			}
			rec := []string{
				r.RunID,
				r.QuestionID,
				r.Section,
				strconv.Itoa(r.SpreadWords),
				gap,
				strconv.Itoa(r.ShortResponses),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}
}

// ReadMetrics loads the metrics table. Columns are located by header name.
func (s *Store) ReadMetrics(runID string) ([]audit.MetricsRow, error) {
	path := s.MetricsPath(runID)
	f, err := openRead(KindMetrics, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &audit.MalformedRecordError{Path: path, Line: 1, Err: errors.New("missing header")}
		}
		return nil, &audit.MalformedRecordError{Path: path, Line: 1, Err: err}
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	for _, want := range MetricsHeader {
		if _, ok := col[want]; !ok {
			return nil, &audit.MalformedRecordError{Path: path, Line: 1, Err: fmt.Errorf("missing column %q", want)}
		}
	}

	rows := make([]audit.MetricsRow, 0)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &audit.MalformedRecordError{Path: path, Line: line, Err: err}
		}
		row, err := parseMetricsRow(rec, col)
		if err != nil {
			return nil, &audit.MalformedRecordError{Path: path, Line: line, Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseMetricsRow(rec []string, col map[string]int) (audit.MetricsRow, error) {
	spread, err := strconv.Atoi(rec[col["spread_words"]])
	if err != nil {
		return audit.MetricsRow{}, fmt.Errorf("spread_words: %w", err)
	}
	short, err := strconv.Atoi(rec[col["short_responses"]])
	if err != nil {
		return audit.MetricsRow{}, fmt.Errorf("short_responses: %w", err)
	}
	var gap *float64
	if cell := rec[col["gap_ratio"]]; cell != "" {
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return audit.MetricsRow{}, fmt.Errorf("gap_ratio: %w", err)
		}
		gap = &v
	}
	qid := rec[col["question_id"]]
	if qid == "" {
		return audit.MetricsRow{}, errors.New("question_id is required")
	}
	return audit.MetricsRow{
		RunID:          rec[col["run_id"]],
		QuestionID:     qid,
		Section:        rec[col["section"]],
		SpreadWords:    spread,
		GapRatio:       gap,
		ShortResponses: short,
	}, nil
}

// #endregion metrics
