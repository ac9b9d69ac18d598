package artifact

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
)

// maxLineBytes bounds one JSONL record. Long model answers fit comfortably.
const maxLineBytes = 16 << 20

// #region raw-log

// ReadResponses parses the raw response log of a run. Blank lines are
// skipped; any other line that fails to parse, or lacks question_id or
// model, fails the whole read with a MalformedRecordError.
func (s *Store) ReadResponses(runID string) ([]audit.ResponseRecord, error) {
	path := s.RawResponsesPath(runID)
	f, err := openRead(KindRawResponses, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []audit.ResponseRecord
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec audit.ResponseRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, &audit.MalformedRecordError{Path: path, Line: line, Err: err}
		}
		if err := checkRecord(rec); err != nil {
			return nil, &audit.MalformedRecordError{Path: path, Line: line, Err: err}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &audit.MalformedRecordError{Path: path, Line: line + 1, Err: err}
	}
	return records, nil
}

func checkRecord(rec audit.ResponseRecord) error {
	if rec.QuestionID == "" {
		return errors.New("question_id is required")
	}
	if rec.Model == "" {
		return errors.New("model is required")
	}
	return nil
}

// AppendResponse appends one record to the run's raw log, creating the run
// directory on first use. The log is append-only.
func (s *Store) AppendResponse(runID string, rec audit.ResponseRecord) error {
	if err := checkRecord(rec); err != nil {
		return fmt.Errorf("append response: %w", err)
	}
	path := s.RawResponsesPath(runID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open raw log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("append response: %w", err)
	}
	return f.Close()
}

// #endregion raw-log

// #region collection-meta

// CollectionMeta is the collector's run_meta.json, written before any answer.
type CollectionMeta struct {
	RunID            string   `json:"run_id"`
	CreatedAt        string   `json:"created_at"`
	Models           []string `json:"models"`
	Temperature      float64  `json:"temperature"`
	MaxTokens        int      `json:"max_tokens"`
	QuestionsFile    string   `json:"questions_file,omitempty"`
	BenchmarkVersion string   `json:"benchmark_version,omitempty"`
	Language         string   `json:"language,omitempty"`
}

// ReadCollectionMeta loads run_meta.json. The file is optional; callers
// check audit.IsMissingArtifact.
func (s *Store) ReadCollectionMeta(runID string) (*CollectionMeta, error) {
	path := s.CollectionMetaPath(runID)
	data, err := readFile(KindCollectionMeta, path)
	if err != nil {
		return nil, err
	}
	var meta CollectionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, &audit.MalformedRecordError{Path: path, Line: 1, Err: err}
	}
	return &meta, nil
}

// WriteCollectionMeta writes run_meta.json atomically.
func (s *Store) WriteCollectionMeta(meta *CollectionMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collection meta: %w", err)
	}
	return writeBytesAtomic(s.CollectionMetaPath(meta.RunID), data)
}

// #endregion collection-meta
