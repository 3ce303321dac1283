package ratings

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeToleratesMissingArrays(t *testing.T) {
	d, err := Decode([]byte(`{"dailyData":[{"date":"2024-09-09","laRevuelta":{"viewers":1,"share":2.5}}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.WeeklyData == nil || d.MonthlyData == nil {
		t.Fatalf("expected empty passthrough arrays, got %#v / %#v", d.WeeklyData, d.MonthlyData)
	}
	want := []DailyRecord{{Date: "2024-09-09", LaRevuelta: Figures{Viewers: 1, Share: 2.5}}}
	if diff := cmp.Diff(want, d.DailyData); diff != "" {
		t.Fatalf("daily data mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeKeepsNonASCIIAndPassthrough(t *testing.T) {
	d := NewDataset()
	d.WeeklyData = append(d.WeeklyData, json.RawMessage(`{"semana":"Año <1>"}`))
	d.DailyData = append(d.DailyData, DailyRecord{Date: "2024-09-10"})
	d.LastUpdated = "2024-09-11T08:00:00Z"

	out, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"semana": "Año <1>"`) {
		t.Fatalf("non-ASCII or HTML characters were escaped:\n%s", s)
	}
	if !strings.Contains(s, "\n    \"dailyData\": [") {
		t.Fatalf("expected 4-space indentation:\n%s", s)
	}
	for _, key := range []string{`"dailyData"`, `"weeklyData"`, `"monthlyData"`, `"lastUpdated"`, `"laRevuelta"`, `"elHormiguero"`} {
		if !strings.Contains(s, key) {
			t.Fatalf("encoded dataset misses %s:\n%s", key, s)
		}
	}

	back, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(d.DailyData, back.DailyData); diff != "" {
		t.Fatalf("daily data changed across encode/decode (-want +got):\n%s", diff)
	}
	if len(back.WeeklyData) != 1 || back.LastUpdated != d.LastUpdated {
		t.Fatalf("passthrough fields lost: %+v", back)
	}
}

func TestEncodeNilArraysAsEmpty(t *testing.T) {
	out, err := Encode(&Dataset{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if bytes.Contains(out, []byte("null")) {
		t.Fatalf("expected empty arrays instead of null:\n%s", out)
	}
}

func TestSortDailyNewestFirst(t *testing.T) {
	d := &Dataset{DailyData: []DailyRecord{
		{Date: "2024-09-10"}, {Date: "2025-01-02"}, {Date: "2024-12-31"}, {Date: "2024-09-09"},
	}}
	d.SortDaily()

	var got []string
	for _, r := range d.DailyData {
		got = append(got, r.Date)
	}
	want := []string{"2025-01-02", "2024-12-31", "2024-09-10", "2024-09-09"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sort order mismatch (-want +got):\n%s", diff)
	}
}

func TestDatesSkipsEmpty(t *testing.T) {
	d := &Dataset{DailyData: []DailyRecord{{Date: "2024-09-09"}, {Date: ""}}}
	index := d.Dates()
	if len(index) != 1 || !index["2024-09-09"] {
		t.Fatalf("unexpected index %v", index)
	}
}

func TestSetProgram(t *testing.T) {
	var r DailyRecord
	r.SetProgram(ElHormiguero, Figures{Viewers: 10, Share: 1.5})
	r.SetProgram(ProgramKey("other"), Figures{Viewers: 99})

	if got := r.Program(ElHormiguero); got != (Figures{Viewers: 10, Share: 1.5}) {
		t.Fatalf("unexpected figures %+v", got)
	}
	if got := r.Program(LaRevuelta); got != (Figures{}) {
		t.Fatalf("La Revuelta should stay at zero, got %+v", got)
	}
}

func TestPrintDatasetLimit(t *testing.T) {
	d := &Dataset{DailyData: []DailyRecord{
		{Date: "2024-09-11", LaRevuelta: Figures{Viewers: 1200000, Share: 10.2}},
		{Date: "2024-09-10"},
	}}
	var buf bytes.Buffer
	PrintDataset(&buf, d, 1)

	out := buf.String()
	if !strings.Contains(out, "2024-09-11") || strings.Contains(out, "2024-09-10") {
		t.Fatalf("limit not honoured:\n%s", out)
	}
	if !strings.Contains(strings.ToLower(out), "2 days") {
		t.Fatalf("footer should count every record:\n%s", out)
	}
}
