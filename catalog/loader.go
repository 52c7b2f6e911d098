// Package catalog reads the customer purchase workbook and answers
// mobile-number lookups against it.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"claimdesk/apperr"
)

// DefaultTTL is how long a loaded snapshot is served before re-reading.
const DefaultTTL = 5 * time.Minute

// Loader reads the catalog file and caches the snapshot for a bounded
// window. Concurrent misses share one read; readers never block on each
// other once a snapshot is cached.
type Loader struct {
	path     string
	sheet    string
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
	observer func(rows int, err error)

	group   singleflight.Group
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	catalog *Catalog
	expires time.Time
}

// NewLoader creates a loader for path. A non-positive ttl uses DefaultTTL.
func NewLoader(path string, ttl time.Duration, logger *zap.Logger) *Loader {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		path:   path,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// WithSheet selects a worksheet by name instead of the first one.
func (l *Loader) WithSheet(name string) *Loader {
	l.sheet = name
	return l
}

// WithClock overrides the clock used for cache expiry.
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// WithObserver registers a callback invoked after every physical read.
func (l *Loader) WithObserver(fn func(rows int, err error)) *Loader {
	l.observer = fn
	return l
}

// Load returns the cached snapshot, reading the file when the cache is
// empty or expired. It never fails: a read error yields an empty catalog
// whose Err and Warning describe the problem. Reads cut short by ctx are
// returned to the caller but not cached.
func (l *Loader) Load(ctx context.Context) *Catalog {
	if s := l.current.Load(); s != nil && l.now().Before(s.expires) {
		return s.catalog
	}

	v, _, _ := l.group.Do("catalog", func() (any, error) {
		if s := l.current.Load(); s != nil && l.now().Before(s.expires) {
			return s.catalog, nil
		}
		cat := l.read(ctx)
		if !abandoned(cat.Err()) {
			l.current.Store(&snapshot{catalog: cat, expires: l.now().Add(l.ttl)})
		}
		return cat, nil
	})
	return v.(*Catalog)
}

// Invalidate drops the cached snapshot so the next Load re-reads the file.
func (l *Loader) Invalidate() {
	l.current.Store(nil)
}

func abandoned(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (l *Loader) read(ctx context.Context) *Catalog {
	start := l.now()
	raw, err := l.readRaw(ctx)
	if err != nil {
		err = apperr.DataSource("catalog: load", err)
		l.logger.Warn("catalog unavailable, serving empty catalog",
			zap.String("path", l.path),
			zap.Error(err),
		)
		if l.observer != nil {
			l.observer(0, err)
		}
		return &Catalog{columns: fallbackColumns(), loadedAt: start, err: err}
	}

	rows, cols := table(raw)
	l.logger.Info("catalog loaded",
		zap.String("path", l.path),
		zap.Int("rows", len(rows)),
		zap.Any("columns", cols),
	)
	if l.observer != nil {
		l.observer(len(rows), nil)
	}
	return &Catalog{rows: rows, columns: cols, loadedAt: start}
}

func (l *Loader) readRaw(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.path == "" {
		return nil, fmt.Errorf("no catalog path configured")
	}

	switch strings.ToLower(filepath.Ext(l.path)) {
	case ".csv":
		return readCSV(l.path)
	default:
		return readWorkbook(l.path, l.sheet)
	}
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}
