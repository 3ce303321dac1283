package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/audimetria/audimetria/internal/utils"
	"github.com/audimetria/audimetria/pkg/dates"
	"github.com/audimetria/audimetria/pkg/extract"
	"github.com/audimetria/audimetria/pkg/ratings"
	"github.com/audimetria/audimetria/pkg/storage"
	"github.com/audimetria/audimetria/pkg/store"
	"github.com/audimetria/audimetria/pkg/whttp"
	"github.com/sirupsen/logrus"
)

// ErrSave means new data was collected but could not be written. It is
// distinct from a run that found nothing new.
var ErrSave = errors.New("saving dataset failed")

var discard = utils.Discard()

// Fetcher downloads one ranking page.
type Fetcher interface {
	Get(ctx context.Context, url string) (*whttp.Response, error)
}

// Mirror receives every daily record at the end of a run.
type Mirror interface {
	UpsertDailyRecords(ctx context.Context, records []ratings.DailyRecord) ([]storage.Change, error)
}

// Driver runs one incremental scrape: load the dataset, scan candidate
// dates, merge unseen days and persist when something changed.
type Driver struct {
	Store     store.Store
	Fetcher   Fetcher
	Extractor *extract.Extractor
	// BaseURL gets "YYYY/MM/DD/" appended for each candidate date.
	BaseURL  string
	Start    time.Time
	Weekdays []time.Weekday
	Now      func() time.Time
	Log      logrus.FieldLogger
	// DryRun scans and merges but never writes the dataset.
	DryRun bool
	Mirror Mirror
}

type Result struct {
	Candidates int
	Fetched    int
	Failed     int
	Skipped    int
	Added      int
	// Saved is set when the dataset was written; Created when that write
	// created it.
	Saved   bool
	Created bool
	// Dataset is the merged dataset, whether or not it was written.
	Dataset       *ratings.Dataset
	MirrorChanges []storage.Change
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Driver) log() logrus.FieldLogger {
	if d.Log != nil {
		return d.Log
	}
	return discard
}

// Run performs a single pass. Per-date failures are logged and skipped; the
// returned error is either ctx.Err() or wraps ErrSave.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	log := d.log().WithFields(logrus.Fields{
		"source":  whttp.SourceLabel(d.BaseURL),
		"dataset": d.Store.Location(),
	})
	extractor := d.Extractor
	if extractor == nil {
		extractor = extract.New()
	}

	dataset, version, err := d.Store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Info("No dataset stored yet, starting from scratch")
		dataset, version = ratings.NewDataset(), ""
	case err != nil:
		log.WithError(err).Warn("Could not load dataset, starting from scratch")
		dataset, version = ratings.NewDataset(), ""
	}

	res := Result{Dataset: dataset}
	known := dataset.Dates()
	log.Debugf("Loaded %d daily records", len(dataset.DailyData))

	for day := range dates.Candidates(d.Start, d.now, d.Weekdays...) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Candidates++

		url := d.BaseURL + dates.Path(day) + "/"
		dlog := log.WithFields(logrus.Fields{"date": day.Format(dates.ISOLayout), "url": url})

		record, err := d.scan(ctx, extractor, url)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			dlog.WithError(err).Warn("Skipping date")
			continue
		}
		res.Fetched++

		if known[record.Date] {
			res.Skipped++
			dlog.Debug("Already recorded")
			continue
		}
		dataset.DailyData = append(dataset.DailyData, record)
		known[record.Date] = true
		res.Added++
		dlog.Infof("Added record for %s", record.Date)
	}

	log.Infof("Found %d new records", res.Added)

	if res.Added > 0 {
		dataset.SortDaily()
	}

	if res.Added > 0 || version == "" {
		dataset.LastUpdated = d.now().Format(time.RFC3339)
		if d.DryRun {
			log.Infof("Dry run: would have written %d daily records", len(dataset.DailyData))
		} else {
			if err := d.Store.Save(ctx, dataset, version); err != nil {
				log.WithError(err).Error("Failed to save dataset")
				return res, fmt.Errorf("%w: %v", ErrSave, err)
			}
			res.Saved, res.Created = true, version == ""
			if res.Created {
				log.Info("Dataset created")
			} else {
				log.Info("Dataset updated")
			}
		}
	} else {
		log.Info("No new data to save")
	}

	if d.Mirror != nil {
		changes, err := d.Mirror.UpsertDailyRecords(ctx, dataset.DailyData)
		if err != nil {
			log.WithError(err).Warn("Failed to update mirror")
		} else {
			res.MirrorChanges = changes
		}
	}
	return res, nil
}

// scan fetches and extracts one date.
func (d *Driver) scan(ctx context.Context, extractor *extract.Extractor, url string) (ratings.DailyRecord, error) {
	page, err := d.Fetcher.Get(ctx, url)
	if err != nil {
		return ratings.DailyRecord{}, err
	}
	return extractor.Extract(bytes.NewReader(page.Body))
}

// ScanDate fetches and extracts a single day without touching the dataset.
func (d *Driver) ScanDate(ctx context.Context, day time.Time) (ratings.DailyRecord, error) {
	extractor := d.Extractor
	if extractor == nil {
		extractor = extract.New()
	}
	return d.scan(ctx, extractor, d.BaseURL+dates.Path(day)+"/")
}
