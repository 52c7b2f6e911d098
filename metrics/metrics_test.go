package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/apperr"
	"claimdesk/catalog"
	"claimdesk/claim"
)

type failingTracker struct{ err error }

func (f failingTracker) Submit(context.Context, claim.Record) error { return f.err }

type okNotifier struct{}

func (okNotifier) Notify(context.Context, claim.Message, claim.Attachment) error { return nil }

func TestObserveSubmit(t *testing.T) {
	r := NewRegistry()

	r.ObserveSubmit(claim.Outcome{Mailed: true, Tracked: true}, nil)
	r.ObserveSubmit(claim.Outcome{Mailed: true}, nil)
	r.ObserveSubmit(claim.Outcome{}, apperr.Transport("notify: send", errors.New("timeout")))
	r.ObserveSubmit(claim.Outcome{}, &claim.ValidationError{Problems: []string{claim.MsgIssueRequired}})
	r.ObserveSubmit(claim.Outcome{}, fmt.Errorf("%w: Invoice: X", claim.ErrForeignRow))

	for _, label := range []string{"submitted", "partial", "mail_failed", "invalid", "error"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(r.Submissions.WithLabelValues(label)), label)
	}
}

func TestObserveLookup(t *testing.T) {
	r := NewRegistry()

	r.ObserveLookup(claim.Lookup{Rows: []catalog.Row{{Mobile: "9876543210"}}}, nil)
	r.ObserveLookup(claim.Lookup{}, nil)
	r.ObserveLookup(claim.Lookup{}, apperr.Validation("catalog: find", catalog.ErrInvalidMobile))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Lookups.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Lookups.WithLabelValues("no_products")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Lookups.WithLabelValues("invalid")))
}

func TestTransportWrappers(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("status 500")

	require.NoError(t, r.Notifier(okNotifier{}).Notify(context.Background(), claim.Message{}, claim.Attachment{}))
	err := r.Tracker(failingTracker{err: boom}).Submit(context.Background(), claim.Record{})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 0.0, testutil.ToFloat64(r.TransportFailures.WithLabelValues("smtp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TransportFailures.WithLabelValues("tracker")))
}

func TestCatalogObserverAndHandler(t *testing.T) {
	r := NewRegistry()
	obs := r.CatalogObserver()
	obs(42, nil)
	obs(0, errors.New("missing file"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.CatalogLoads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CatalogLoads.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.CatalogRows))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "claimdesk_catalog_loads_total"))
}
