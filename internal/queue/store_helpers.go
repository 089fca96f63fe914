package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, topic, category, status, attempts, error_message, output_path, duration_seconds, rating, prompt_hash, meta_json, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		topic           string
		category        string
		statusStr       string
		attempts        int
		errorMessage    sql.NullString
		outputPath      sql.NullString
		durationSeconds sql.NullFloat64
		rating          sql.NullInt64
		promptHash      sql.NullString
		metaJSON        sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&topic,
		&category,
		&statusStr,
		&attempts,
		&errorMessage,
		&outputPath,
		&durationSeconds,
		&rating,
		&promptHash,
		&metaJSON,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		Topic:           topic,
		Category:        category,
		Status:          Status(statusStr),
		Attempts:        attempts,
		ErrorMessage:    errorMessage.String,
		OutputPath:      outputPath.String,
		DurationSeconds: durationSeconds.Float64,
		PromptHash:      promptHash.String,
		MetaJSON:        metaJSON.String,
	}
	if rating.Valid {
		value := int(rating.Int64)
		job.Rating = &value
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
