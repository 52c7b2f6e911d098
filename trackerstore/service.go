// Package trackerstore is a Postgres-backed claim tracking endpoint. It
// speaks the same JSON contract the intake service's tracker client uses:
// POST stores one claim, GET returns every claim, PATCH moves a claim
// through the warranty team's status workflow.
package trackerstore

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"claimdesk/claim"
)

// Store abstracts Repository for testability.
type Store interface {
	Insert(ctx context.Context, rec claim.Record) (claim.Record, error)
	List(ctx context.Context, mobile string) ([]claim.Record, error)
	UpdateStatus(ctx context.Context, id string, status claim.Status) (claim.Record, error)
}

// Service applies the endpoint's rules on top of a Store.
type Service struct {
	store Store
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{store: store, newID: uuid.NewString}
}

// WithIDs overrides id generation.
func (s *Service) WithIDs(gen func() string) *Service {
	s.newID = gen
	return s
}

// Create stores rec under a fresh id. Any client-supplied id is ignored and
// a blank status becomes Pending.
func (s *Service) Create(ctx context.Context, rec claim.Record) (claim.Record, error) {
	rec.MobileNo = strings.TrimSpace(rec.MobileNo)
	if rec.MobileNo == "" {
		return claim.Record{}, ErrNoMobile
	}
	rec.ID = s.newID()
	if strings.TrimSpace(string(rec.Status)) == "" {
		rec.Status = claim.StatusPending
	}
	return s.store.Insert(ctx, rec)
}

// List returns stored claims, all of them when mobile is blank.
func (s *Service) List(ctx context.Context, mobile string) ([]claim.Record, error) {
	return s.store.List(ctx, strings.TrimSpace(mobile))
}

// SetStatus moves claim id to status, which must be a recognised status.
func (s *Service) SetStatus(ctx context.Context, id, status string) (claim.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return claim.Record{}, ErrNotFound
	}
	st, ok := claim.ParseStatus(status)
	if !ok {
		return claim.Record{}, ErrBadStatus
	}
	return s.store.UpdateStatus(ctx, id, st)
}
