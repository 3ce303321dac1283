package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/audimetria/audimetria/pkg/parse"
	"github.com/audimetria/audimetria/pkg/ratings"
	"golang.org/x/net/html"
)

// Page shape errors. They mean "no data for this date", not a broken run.
var (
	ErrNoRanking = errors.New("ranking container not found")
	ErrNoHeading = errors.New("ranking heading not found")
	ErrNoTable   = errors.New("ranking table body not found")
	ErrBadDate   = errors.New("ranking heading has no usable date")
)

const (
	rankingSelector = "div.md-tv-rank__body"
	summaryRowClass = "bar"
)

// Matcher ties a tracked program to the text its ranking row carries.
type Matcher struct {
	Key ratings.ProgramKey
	// Contains is compared, lower-cased, against the row header.
	Contains string
}

// DefaultMatchers are tried in order against each row.
var DefaultMatchers = []Matcher{
	{Key: ratings.ElHormiguero, Contains: "el hormiguero"},
	{Key: ratings.LaRevuelta, Contains: "la revuelta"},
}

type Extractor struct {
	Matchers []Matcher
	// FirstMatchWins keeps the first row found for a program. By default a
	// later duplicate row overwrites an earlier one.
	FirstMatchWins bool
}

// New returns an extractor using DefaultMatchers.
func New() *Extractor {
	return &Extractor{Matchers: DefaultMatchers}
}

// Extract parses a ranking page.
func (e *Extractor) Extract(r io.Reader) (ratings.DailyRecord, error) {
	root, err := html.Parse(r)
	if err != nil {
		return ratings.DailyRecord{}, fmt.Errorf("parsing html: %w", err)
	}
	return e.ExtractDocument(goquery.NewDocumentFromNode(root))
}

// ExtractDocument builds the daily record from an already parsed page.
func (e *Extractor) ExtractDocument(doc *goquery.Document) (ratings.DailyRecord, error) {
	body := doc.Find(rankingSelector).First()
	if body.Length() == 0 {
		return ratings.DailyRecord{}, ErrNoRanking
	}

	heading := body.Find("h1").First()
	if heading.Length() == 0 {
		return ratings.DailyRecord{}, ErrNoHeading
	}
	date, err := parse.Date(heading.Text())
	if err != nil {
		return ratings.DailyRecord{}, fmt.Errorf("%w: %v", ErrBadDate, err)
	}

	record := ratings.DailyRecord{Date: date}

	tbody := body.Find("tbody").First()
	if tbody.Length() == 0 {
		return ratings.DailyRecord{}, ErrNoTable
	}

	seen := make(map[ratings.ProgramKey]bool)
	tbody.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.HasClass(summaryRowClass) {
			return
		}
		th := row.Find("th").First()
		if th.Length() == 0 {
			return
		}

		key, ok := e.match(strings.ToLower(strings.TrimSpace(th.Text())))
		if !ok {
			return
		}
		if e.FirstMatchWins && seen[key] {
			return
		}
		seen[key] = true

		record.SetProgram(key, ratings.Figures{
			Viewers: parse.Count(row.Find("td.total").First().Text()),
			Share:   parse.Share(row.Find("td.share").First().Text()),
		})
	})

	return record, nil
}

func (e *Extractor) match(name string) (ratings.ProgramKey, bool) {
	for _, m := range e.Matchers {
		if m.Contains != "" && strings.Contains(name, strings.ToLower(m.Contains)) {
			return m.Key, true
		}
	}
	return "", false
}
