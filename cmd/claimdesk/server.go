package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"claimdesk/apperr"
	"claimdesk/catalog"
	"claimdesk/claim"
	"claimdesk/config"
	"claimdesk/metrics"
	"claimdesk/tracker"
)

const shutdownTimeout = 10 * time.Second

type claimService interface {
	Lookup(ctx context.Context, mobile string) (claim.Lookup, error)
	Submit(ctx context.Context, d claim.Draft) (claim.Outcome, error)
}

// Server exposes the customer lookup, claim submission and claim tracking
// views over HTTP.
type Server struct {
	claims    claimService
	tracker   claimLister
	metrics   *metrics.Registry
	logger    *zap.Logger
	maxUpload int64
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	d := wire(cfg, logger, reg)
	srv := &Server{
		claims:    d.claims,
		tracker:   d.tracker,
		metrics:   reg,
		logger:    logger.Named("http"),
		maxUpload: cfg.MaxUploadBytes(),
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cat := d.loader.Load(gctx)
		logger.Info("catalog warmed", zap.Int("rows", cat.Len()), zap.String("warning", cat.Warning()))
		return nil
	})
	g.Go(func() error {
		logger.Info("claimdesk listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("claimdesk shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/customers/", s.handleCustomer)
	mux.HandleFunc("/api/claims", s.handleClaims)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return s.withRequestID(mux)
}

type ctxKey int

const ctxKeyRequestID ctxKey = iota

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
		s.log().Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

type productResponse struct {
	Display string `json:"display"`
	Invoice string `json:"invoice"`
	Model   string `json:"model"`
	Serial  string `json:"serial"`
	OSID    string `json:"osid"`
}

type customerResponse struct {
	Customer string            `json:"customer,omitempty"`
	Mobile   string            `json:"mobile"`
	State    string            `json:"state"`
	Products []productResponse `json:"products"`
	Warning  string            `json:"warning,omitempty"`
	LoadedAt string            `json:"catalog_loaded_at,omitempty"`
}

func (s *Server) handleCustomer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	mobile := strings.TrimPrefix(r.URL.Path, "/api/customers/")
	if mobile == "" || strings.Contains(mobile, "/") {
		writeError(w, http.StatusBadRequest, claim.MsgMobileRequired)
		return
	}

	res, err := s.claims.Lookup(r.Context(), mobile)
	if s.metrics != nil {
		s.metrics.ObserveLookup(res, err)
	}
	if err != nil {
		var verr *claim.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, strings.Join(verr.Problems, "; "))
			return
		}
		s.fail(w, r, "lookup", err)
		return
	}

	resp := customerResponse{
		Customer: res.Customer,
		Mobile:   res.Mobile,
		State:    "found",
		Products: make([]productResponse, 0, len(res.Rows)),
		Warning:  res.Warning,
	}
	if !res.CatalogAt.IsZero() {
		resp.LoadedAt = res.CatalogAt.Format(time.RFC3339)
	}
	if len(res.Rows) == 0 {
		resp.State = "no_products"
	}
	for _, row := range res.Rows {
		resp.Products = append(resp.Products, productResponse{
			Display: catalog.Display(row),
			Invoice: row.Invoice,
			Model:   row.Model,
			Serial:  row.Serial,
			OSID:    row.OSID,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListClaims(w, r)
	case http.MethodPost:
		s.handleSubmitClaim(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type listResponse struct {
	Count int            `json:"count"`
	Cards []tracker.Card `json:"cards"`
	Rows  []tracker.Row  `json:"rows"`
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	mobile := strings.TrimSpace(r.URL.Query().Get("mobile"))
	if mobile != "" && !catalog.ValidMobile(mobile) {
		writeError(w, http.StatusBadRequest, claim.MsgMobileInvalid)
		return
	}

	records, err := s.tracker.List(r.Context())
	if err != nil {
		s.fail(w, r, "list claims", err)
		return
	}
	records = tracker.FilterByMobile(records, mobile)
	writeJSON(w, http.StatusOK, listResponse{
		Count: len(records),
		Cards: tracker.Cards(records),
		Rows:  tracker.Rows(records),
	})
}

type submitResponse struct {
	Subject     string       `json:"subject"`
	SubmittedAt string       `json:"submitted_at"`
	Mailed      bool         `json:"mailed"`
	Tracked     bool         `json:"tracked"`
	Error       string       `json:"error,omitempty"`
	Record      claim.Record `json:"record"`
}

func (s *Server) handleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	draft := claim.Draft{
		Mobile:   r.FormValue("mobile"),
		Address:  r.FormValue("address"),
		Issue:    r.FormValue("issue"),
		Selected: r.MultipartForm.Value["products"],
	}
	doc, err := readDocument(r.MultipartForm, s.maxUpload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	draft.Attachment = doc

	out, err := s.claims.Submit(r.Context(), draft)
	if s.metrics != nil {
		s.metrics.ObserveSubmit(out, err)
	}
	if err != nil {
		var verr *claim.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string][]string{"errors": verr.Problems})
		case errors.Is(err, claim.ErrNoProducts):
			writeJSON(w, http.StatusBadRequest, map[string][]string{"errors": {"No products found for this mobile number"}})
		default:
			s.fail(w, r, "submit claim", err)
		}
		return
	}

	resp := submitResponse{
		Subject:     out.Message.Subject,
		SubmittedAt: claim.FormatSubmitted(out.Record.SubmittedDate),
		Mailed:      out.Mailed,
		Tracked:     out.Tracked,
		Record:      out.Record,
	}
	status := http.StatusOK
	if out.TrackErr != nil {
		status = http.StatusMultiStatus
		resp.Error = "Claim emailed but the tracker update failed: " + out.TrackErr.Error()
	}
	writeJSON(w, status, resp)
}

// readDocument returns the uploaded "document" file, or nil when none was sent.
func readDocument(form *multipart.Form, limit int64) (*claim.Attachment, error) {
	files := form.File["document"]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errors.New("document exceeds size limit")
	}

	ct, ok := claim.DocumentType(fh.Filename)
	if !ok {
		ct = fh.Header.Get("Content-Type")
	}
	return &claim.Attachment{Name: fh.Filename, ContentType: ct, Data: data}, nil
}

// statusFor maps an error kind to the HTTP status reported for it.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindDataSource:
		return http.StatusServiceUnavailable
	case apperr.KindTransport, apperr.KindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	s.log().Error(op+" failed",
		zap.String("request_id", requestID(r.Context())),
		zap.String("kind", apperr.KindOf(err).String()),
		zap.Error(err),
	)
	msg := "internal error"
	if status != http.StatusInternalServerError {
		msg = err.Error()
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
