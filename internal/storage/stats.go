package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
)

// IndexStats summarizes what is currently indexed.
type IndexStats struct {
	// Files is the number of indexed files.
	Files int `json:"files"`
	// Goals is the number of stored goal embeddings.
	Goals int `json:"goals"`
	// Languages counts files per inferred language.
	Languages map[string]int `json:"languages"`
	// GoalsPerFile describes how many goals each file produced.
	GoalsPerFile GoalCountStats `json:"goalsPerFile"`
	// LastCursor is the cursor of the newest log entry, 0 if the log is empty.
	LastCursor int64 `json:"lastCursor"`
}

// GoalCountStats contains statistics about goal counts per file.
type GoalCountStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// Stats computes index statistics from the database.
func (r *FileRepo) Stats(ctx context.Context) (*IndexStats, error) {
	stats := &IndexStats{Languages: make(map[string]int)}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&stats.Files); err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_goals").Scan(&stats.Goals); err != nil {
		return nil, fmt.Errorf("failed to count goals: %w", err)
	}

	var lastCursor sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(cursor) FROM log").Scan(&lastCursor); err != nil {
		return nil, fmt.Errorf("failed to query last cursor: %w", err)
	}
	stats.LastCursor = lastCursor.Int64

	langRows, err := r.db.QueryContext(ctx, "SELECT language, COUNT(*) FROM files GROUP BY language")
	if err != nil {
		return nil, fmt.Errorf("failed to query languages: %w", err)
	}
	defer func() {
		_ = langRows.Close()
	}()
	for langRows.Next() {
		var lang string
		var count int
		if err := langRows.Scan(&lang, &count); err != nil {
			return nil, fmt.Errorf("failed to scan language count: %w", err)
		}
		stats.Languages[lang] = count
	}
	if err := langRows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	countRows, err := r.db.QueryContext(ctx,
		`SELECT COUNT(g.id) FROM files f
		 LEFT JOIN file_goals g ON g.file_id = f.id
		 GROUP BY f.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal counts: %w", err)
	}
	defer func() {
		_ = countRows.Close()
	}()
	var counts []int
	for countRows.Next() {
		var count int
		if err := countRows.Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to scan goal count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := countRows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	stats.GoalsPerFile = computeGoalCountStats(counts)

	return stats, nil
}

// computeGoalCountStats computes min, max, mean, and p95 from goal counts.
func computeGoalCountStats(counts []int) GoalCountStats {
	if len(counts) == 0 {
		return GoalCountStats{}
	}

	sorted := make([]int, len(counts))
	copy(sorted, counts)
	sort.Ints(sorted)

	sum := 0
	for _, c := range sorted {
		sum += c
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	if p95Index < 0 {
		p95Index = 0
	}

	return GoalCountStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
