// Package claim validates warranty claim drafts, renders them into a
// notification and a tracker record, and runs the submission flow.
package claim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"claimdesk/apperr"
	"claimdesk/catalog"
)

// ErrNoProducts signals a valid mobile number with nothing registered under it.
var ErrNoProducts = errors.New("claim: no products are registered under this mobile number")

// CatalogSource abstracts catalog.Loader for testability.
type CatalogSource interface {
	Load(ctx context.Context) *catalog.Catalog
}

// Notifier delivers the rendered claim with its supporting document.
type Notifier interface {
	Notify(ctx context.Context, msg Message, doc Attachment) error
}

// Tracker persists the claim record remotely.
type Tracker interface {
	Submit(ctx context.Context, rec Record) error
}

// Lookup is the customer view for one mobile number.
type Lookup struct {
	Mobile   string
	Customer string
	Rows     []catalog.Row
	Warning  string

	// CatalogAt is when the catalog snapshot that answered was read.
	CatalogAt time.Time
}

// Outcome reports which side effects of a submission happened. Mailed
// without Tracked is a reported partial failure; the mail is not recalled.
type Outcome struct {
	Record   Record
	Message  Message
	Mailed   bool
	Tracked  bool
	TrackErr error
}

// Service runs lookups and submissions.
type Service struct {
	catalog  CatalogSource
	composer *Composer
	notifier Notifier
	tracker  Tracker
	logger   *zap.Logger
}

// NewService wires a submission service. A nil composer uses the defaults.
func NewService(src CatalogSource, composer *Composer, notifier Notifier, tracker Tracker, logger *zap.Logger) *Service {
	if composer == nil {
		composer = NewComposer(DefaultSubjectPrefix)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:  src,
		composer: composer,
		notifier: notifier,
		tracker:  tracker,
		logger:   logger,
	}
}

// Lookup finds the products registered under mobile. An invalid number
// returns a validation error without touching the catalog.
func (s *Service) Lookup(ctx context.Context, mobile string) (Lookup, error) {
	mobile = strings.TrimSpace(mobile)
	if p := mobileProblem(mobile); p != "" {
		return Lookup{}, &ValidationError{Problems: []string{p}}
	}

	cat := s.catalog.Load(ctx)
	rows, err := cat.Find(mobile)
	if err != nil {
		return Lookup{}, err
	}

	res := Lookup{Mobile: mobile, Rows: rows, Warning: cat.Warning(), CatalogAt: cat.LoadedAt()}
	if len(rows) > 0 {
		res.Customer = catalog.Customer(rows)
	}
	return res, nil
}

// Submit validates and composes d, emails it, then records it with the
// tracker. A draft whose mobile number is malformed fails on that alone,
// since no product list exists to validate against.
//
// A mail failure returns an error and nothing is tracked. A tracker failure
// after the mail went out returns a nil error with Outcome.TrackErr set.
func (s *Service) Submit(ctx context.Context, d Draft) (Outcome, error) {
	lookup, err := s.Lookup(ctx, d.Mobile)
	if err != nil {
		return Outcome{}, err
	}
	if len(lookup.Rows) == 0 {
		return Outcome{}, apperr.Validation("claim: submit", ErrNoProducts)
	}

	rec, msg, err := s.composer.Compose(d, lookup.Rows)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Record: rec, Message: msg}

	if err := s.notifier.Notify(ctx, msg, *d.Attachment); err != nil {
		s.logger.Error("claim notification failed",
			zap.String("mobile", rec.MobileNo),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return out, fmt.Errorf("claim: send notification: %w", err)
	}
	out.Mailed = true

	if err := s.tracker.Submit(ctx, rec); err != nil {
		s.logger.Warn("claim mailed but not tracked",
			zap.String("mobile", rec.MobileNo),
			zap.String("products", rec.Products),
			zap.Error(err),
		)
		out.TrackErr = err
		return out, nil
	}
	out.Tracked = true

	s.logger.Info("claim submitted",
		zap.String("mobile", rec.MobileNo),
		zap.String("customer", rec.CustomerName),
		zap.String("submitted", rec.SubmittedDate),
	)
	return out, nil
}
