package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"clmmcore/internal/model"
)

// JsonlStorage writes state snapshots to a JSONL file, one tagged record per
// line.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

type jsonlRecord struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// PutPools appends pool snapshots as JSON lines.
func (s *JsonlStorage) PutPools(pools []*model.Pool) error {
	records := make([]jsonlRecord, len(pools))
	for i, pool := range pools {
		records[i] = jsonlRecord{Kind: "pool", Data: pool}
	}
	return s.append(records)
}

// PutPositions appends position snapshots as JSON lines.
func (s *JsonlStorage) PutPositions(positions []*model.Position) error {
	records := make([]jsonlRecord, len(positions))
	for i, position := range positions {
		records[i] = jsonlRecord{Kind: "position", Data: position}
	}
	return s.append(records)
}

// PutTickArrays appends tick array snapshots as JSON lines.
func (s *JsonlStorage) PutTickArrays(arrays []*model.TickArray) error {
	records := make([]jsonlRecord, len(arrays))
	for i, array := range arrays {
		records[i] = jsonlRecord{Kind: "tick_array", Data: array}
	}
	return s.append(records)
}

func (s *JsonlStorage) append(records []jsonlRecord) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
