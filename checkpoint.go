package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Stage names for checkpoint artifacts.
const (
	StageReviews  = "reviews"
	StageClassify = "classify"
)

// CheckpointStore durably saves per-window stage artifacts as JSON blobs
// keyed by (window, stage). A row exists only for stages that completed for
// the whole batch; partial checkpoints are never written.
type CheckpointStore struct {
	db *sql.DB
}

func OpenCheckpointStore(path string) (*CheckpointStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		window     TEXT NOT NULL,
		stage      TEXT NOT NULL,
		payload    BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (window, stage)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &CheckpointStore{db: db}, nil
}

func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

func (s *CheckpointStore) Save(w Window, stage string, reviews []Review) error {
	payload, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("marshal checkpoint %s/%s: %w", w.Key(), stage, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO checkpoints (window, stage, payload) VALUES (?, ?, ?)
		 ON CONFLICT(window, stage) DO UPDATE SET payload = excluded.payload, created_at = CURRENT_TIMESTAMP`,
		w.Key(), stage, payload,
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s/%s: %w", w.Key(), stage, err)
	}
	return nil
}

// Load returns the checkpointed batch for (window, stage), or ok=false when
// no such checkpoint exists.
func (s *CheckpointStore) Load(w Window, stage string) ([]Review, bool, error) {
	var payload []byte
	err := s.db.QueryRow(
		`SELECT payload FROM checkpoints WHERE window = ? AND stage = ?`,
		w.Key(), stage,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint %s/%s: %w", w.Key(), stage, err)
	}
	var reviews []Review
	if err := json.Unmarshal(payload, &reviews); err != nil {
		return nil, false, fmt.Errorf("decode checkpoint %s/%s: %w", w.Key(), stage, err)
	}
	return reviews, true, nil
}
