package storage

import (
	"time"

	"github.com/audimetria/audimetria/pkg/ratings"
)

// Entry is one program's figures on one day, as stored in the mirror.
type Entry struct {
	Date    string
	Program ratings.ProgramKey
	Viewers int64
	Share   float64
}

// Change captures a single change event for auditing or printing.
type Change struct {
	OccurredAt time.Time
	Date       string
	Program    ratings.ProgramKey
	Viewers    int64
	Share      float64
	ChangeType string // added | updated
}

// BuildEntries flattens daily records into one entry per tracked program.
// Records without a date are skipped.
func BuildEntries(records []ratings.DailyRecord) []Entry {
	out := make([]Entry, 0, len(records)*len(ratings.Programs))
	for _, r := range records {
		if r.Date == "" {
			continue
		}
		for _, p := range ratings.Programs {
			f := r.Program(p)
			out = append(out, Entry{Date: r.Date, Program: p, Viewers: f.Viewers, Share: f.Share})
		}
	}
	return out
}
