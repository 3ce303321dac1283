package ratings

import (
	"bytes"
	"encoding/json"
	"sort"
)

// ProgramKey identifies one of the tracked shows.
type ProgramKey string

const (
	LaRevuelta   ProgramKey = "laRevuelta"
	ElHormiguero ProgramKey = "elHormiguero"
)

// Programs lists every tracked show in dataset order.
var Programs = []ProgramKey{LaRevuelta, ElHormiguero}

// Figures are the audience numbers of one program on one day.
type Figures struct {
	Viewers int64   `json:"viewers"`
	Share   float64 `json:"share"`
}

// DailyRecord is one day of the ranking. Both programs are always present;
// a show that did not air that day keeps zero figures.
type DailyRecord struct {
	Date         string  `json:"date"`
	LaRevuelta   Figures `json:"laRevuelta"`
	ElHormiguero Figures `json:"elHormiguero"`
}

// Program returns the figures stored for key.
func (r DailyRecord) Program(key ProgramKey) Figures {
	switch key {
	case LaRevuelta:
		return r.LaRevuelta
	case ElHormiguero:
		return r.ElHormiguero
	}
	return Figures{}
}

// SetProgram overwrites the figures for key. Unknown keys are ignored.
func (r *DailyRecord) SetProgram(key ProgramKey, f Figures) {
	switch key {
	case LaRevuelta:
		r.LaRevuelta = f
	case ElHormiguero:
		r.ElHormiguero = f
	}
}

// Dataset is the persisted file. Weekly and monthly data are carried through
// untouched.
type Dataset struct {
	DailyData   []DailyRecord     `json:"dailyData"`
	WeeklyData  []json.RawMessage `json:"weeklyData"`
	MonthlyData []json.RawMessage `json:"monthlyData"`
	LastUpdated string            `json:"lastUpdated,omitempty"`
}

// NewDataset returns an empty dataset whose arrays encode as [] rather than null.
func NewDataset() *Dataset {
	return &Dataset{
		DailyData:   []DailyRecord{},
		WeeklyData:  []json.RawMessage{},
		MonthlyData: []json.RawMessage{},
	}
}

// Dates indexes the dates already present. Records without a date (left by
// older writers) are not indexed.
func (d *Dataset) Dates() map[string]bool {
	index := make(map[string]bool, len(d.DailyData))
	for _, r := range d.DailyData {
		if r.Date != "" {
			index[r.Date] = true
		}
	}
	return index
}

// SortDaily orders daily records newest first. YYYY-MM-DD strings sort
// chronologically, so a string comparison is enough.
func (d *Dataset) SortDaily() {
	sort.SliceStable(d.DailyData, func(i, j int) bool {
		return d.DailyData[i].Date > d.DailyData[j].Date
	})
}

// Encode renders the dataset the way it is committed: 4-space indentation,
// UTF-8 text left unescaped.
func Encode(d *Dataset) ([]byte, error) {
	out := *d
	if out.DailyData == nil {
		out.DailyData = []DailyRecord{}
	}
	if out.WeeklyData == nil {
		out.WeeklyData = []json.RawMessage{}
	}
	if out.MonthlyData == nil {
		out.MonthlyData = []json.RawMessage{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(&out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a stored dataset. Missing arrays come back empty.
func Decode(data []byte) (*Dataset, error) {
	d := NewDataset()
	if err := json.Unmarshal(data, d); err != nil {
		return nil, err
	}
	if d.DailyData == nil {
		d.DailyData = []DailyRecord{}
	}
	if d.WeeklyData == nil {
		d.WeeklyData = []json.RawMessage{}
	}
	if d.MonthlyData == nil {
		d.MonthlyData = []json.RawMessage{}
	}
	return d, nil
}
