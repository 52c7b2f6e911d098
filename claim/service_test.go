package claim

import (
	"context"
	"errors"
	"testing"

	"claimdesk/apperr"
	"claimdesk/catalog"
)

type stubCatalog struct {
	catalog *catalog.Catalog
	loads   int
}

func (s *stubCatalog) Load(context.Context) *catalog.Catalog {
	s.loads++
	return s.catalog
}

type stubNotifier struct {
	err  error
	sent []Message
	docs []Attachment
}

func (s *stubNotifier) Notify(_ context.Context, msg Message, doc Attachment) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	s.docs = append(s.docs, doc)
	return nil
}

type stubTracker struct {
	err     error
	records []Record
}

func (s *stubTracker) Submit(_ context.Context, rec Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func newTestService(n *stubNotifier, tr *stubTracker) (*Service, *stubCatalog) {
	src := &stubCatalog{catalog: catalog.New(kumarRows())}
	return NewService(src, newTestComposer(), n, tr, nil), src
}

func TestServiceLookup_Found(t *testing.T) {
	svc, _ := newTestService(&stubNotifier{}, &stubTracker{})

	res, err := svc.Lookup(context.Background(), " 9876543210 ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if res.Customer != "A Kumar" || len(res.Rows) != 3 || res.Warning != "" {
		t.Fatalf("unexpected lookup: %+v", res)
	}
	if res.CatalogAt.IsZero() {
		t.Fatal("expected the catalog load time to be reported")
	}
}

func TestServiceLookup_NoRows(t *testing.T) {
	svc, _ := newTestService(&stubNotifier{}, &stubTracker{})

	res, err := svc.Lookup(context.Background(), "9000000000")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(res.Rows) != 0 || res.Customer != "" {
		t.Fatalf("expected no rows, got %+v", res)
	}
}

func TestServiceLookup_InvalidSkipsCatalog(t *testing.T) {
	svc, src := newTestService(&stubNotifier{}, &stubTracker{})

	_, err := svc.Lookup(context.Background(), "98765abcde")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if src.loads != 0 {
		t.Fatalf("catalog should not be read, loads=%d", src.loads)
	}
}

func TestServiceSubmit_Success(t *testing.T) {
	n := &stubNotifier{}
	tr := &stubTracker{}
	svc, _ := newTestService(n, tr)

	d := validDraft()
	out, err := svc.Submit(context.Background(), d)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Mailed || !out.Tracked || out.TrackErr != nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(n.sent) != 1 || len(tr.records) != 1 {
		t.Fatalf("expected one mail and one record, got %d and %d", len(n.sent), len(tr.records))
	}
	if n.docs[0].Name != "invoice.pdf" {
		t.Fatalf("attachment not forwarded: %+v", n.docs[0])
	}
	if tr.records[0] != out.Record {
		t.Fatalf("tracked record differs from outcome record")
	}
}

func TestServiceSubmit_MalformedMobileSingleError(t *testing.T) {
	n := &stubNotifier{}
	tr := &stubTracker{}
	svc, src := newTestService(n, tr)

	d := validDraft()
	d.Mobile = "98765"
	d.Address = ""

	_, err := svc.Submit(context.Background(), d)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Problems) != 1 || verr.Problems[0] != MsgMobileInvalid {
		t.Fatalf("expected only the format problem, got %v", verr.Problems)
	}
	if src.loads != 0 || len(n.sent) != 0 || len(tr.records) != 0 {
		t.Fatal("nothing should happen for a malformed mobile")
	}
}

func TestServiceSubmit_CollectsDraftProblems(t *testing.T) {
	n := &stubNotifier{}
	tr := &stubTracker{}
	svc, _ := newTestService(n, tr)

	d := validDraft()
	d.Address = ""
	d.Issue = " "
	d.Attachment = nil

	_, err := svc.Submit(context.Background(), d)
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Problems) != 3 {
		t.Fatalf("expected three problems, got %v", err)
	}
	if len(n.sent) != 0 || len(tr.records) != 0 {
		t.Fatal("invalid drafts must not be sent")
	}
}

func TestServiceSubmit_NoProducts(t *testing.T) {
	svc, _ := newTestService(&stubNotifier{}, &stubTracker{})

	d := validDraft()
	d.Mobile = "9000000000"

	_, err := svc.Submit(context.Background(), d)
	if !errors.Is(err, ErrNoProducts) || apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected ErrNoProducts validation error, got %v", err)
	}
}

func TestServiceSubmit_MailFailureSkipsTracker(t *testing.T) {
	mailErr := apperr.Transport("notify: send", errors.New("535 authentication failed"))
	n := &stubNotifier{err: mailErr}
	tr := &stubTracker{}
	svc, _ := newTestService(n, tr)

	out, err := svc.Submit(context.Background(), validDraft())
	if !errors.Is(err, mailErr) {
		t.Fatalf("expected mail error, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindTransport {
		t.Fatalf("expected transport kind, got %s", apperr.KindOf(err))
	}
	if out.Mailed || out.Tracked || len(tr.records) != 0 {
		t.Fatalf("tracker must not be called after a mail failure: %+v", out)
	}
}

func TestServiceSubmit_TrackerFailureIsPartial(t *testing.T) {
	trackErr := apperr.Transport("tracker: submit", errors.New("status 500"))
	n := &stubNotifier{}
	tr := &stubTracker{err: trackErr}
	svc, _ := newTestService(n, tr)

	out, err := svc.Submit(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("partial failure should not return an error, got %v", err)
	}
	if !out.Mailed || out.Tracked {
		t.Fatalf("expected mailed but not tracked, got %+v", out)
	}
	if !errors.Is(out.TrackErr, trackErr) {
		t.Fatalf("expected tracker error on outcome, got %v", out.TrackErr)
	}
	if len(n.sent) != 1 {
		t.Fatalf("mail should have been sent once, got %d", len(n.sent))
	}
}
