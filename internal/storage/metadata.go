package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// MetadataDB records completed transcription runs in SQLite.
type MetadataDB struct {
	db *sql.DB
}

// Record is one row of transcript metadata.
type Record struct {
	JobID        string    `json:"job_id"`
	FileName     string    `json:"file_name"`
	Model        string    `json:"model"`
	Language     string    `json:"language"`
	Duration     float64   `json:"duration"`
	WordCount    int       `json:"word_count"`
	SpeakerCount int       `json:"speaker_count"`
	LocalPath    string    `json:"local_path"`
	DriveURL     string    `json:"drive_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMetadataDB opens (and if needed initializes) the database.
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		file_name TEXT NOT NULL,
		model TEXT NOT NULL,
		language TEXT,
		duration REAL,
		word_count INTEGER,
		speaker_count INTEGER,
		local_path TEXT NOT NULL,
		drive_url TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveTranscript records a finished run.
func (mdb *MetadataDB) SaveTranscript(jobID string, t *types.Transcript, localPath, driveURL string) error {
	query := `
	INSERT INTO transcripts (job_id, file_name, model, language, duration, word_count, speaker_count, local_path, drive_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := mdb.db.Exec(query,
		jobID, t.FileName, t.Model, t.Language, t.Duration,
		len(strings.Fields(t.Text)), len(t.SpeakerColors),
		localPath, driveURL, time.Now())
	if err != nil {
		return fmt.Errorf("save transcript metadata: %w", err)
	}
	return nil
}

// GetTranscript fetches one record by job id.
func (mdb *MetadataDB) GetTranscript(jobID string) (*Record, error) {
	row := mdb.db.QueryRow(`
	SELECT job_id, file_name, model, language, duration, word_count, speaker_count, local_path, drive_url, created_at
	FROM transcripts WHERE job_id = ?`, jobID)

	var r Record
	var language, driveURL sql.NullString
	if err := row.Scan(&r.JobID, &r.FileName, &r.Model, &language, &r.Duration,
		&r.WordCount, &r.SpeakerCount, &r.LocalPath, &driveURL, &r.CreatedAt); err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	r.Language = language.String
	r.DriveURL = driveURL.String
	return &r, nil
}

// ListTranscripts returns the most recent records.
func (mdb *MetadataDB) ListTranscripts(limit int) ([]Record, error) {
	rows, err := mdb.db.Query(`
	SELECT job_id, file_name, model, language, duration, word_count, speaker_count, local_path, drive_url, created_at
	FROM transcripts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var language, driveURL sql.NullString
		if err := rows.Scan(&r.JobID, &r.FileName, &r.Model, &language, &r.Duration,
			&r.WordCount, &r.SpeakerCount, &r.LocalPath, &driveURL, &r.CreatedAt); err != nil {
			continue
		}
		r.Language = language.String
		r.DriveURL = driveURL.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database.
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
