package trackerstore

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"claimdesk/claim"
	"claimdesk/logging"
)

const maxRecordBytes = 1 << 20

// Handler serves the tracker endpoint at its mount point:
//
//	POST  /       store one claim
//	GET   /       list claims (optional ?mobile=)
//	PATCH /{id}   update status
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logging.OrNop(logger)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(r.URL.Path, "/")
	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.Header().Set("Allow", "GET, POST")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}
	if strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPatch {
		w.Header().Set("Allow", "PATCH")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.handleStatus(w, r, id)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context(), r.URL.Query().Get("mobile"))
	if err != nil {
		h.logger.Error("list claims", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec claim.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBytes))
	if err := dec.Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	stored, err := h.svc.Create(r.Context(), rec)
	switch {
	case errors.Is(err, ErrNoMobile):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("store claim", zap.String("mobile", rec.MobileNo), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("claim stored", zap.String("id", stored.ID), zap.String("mobile", stored.MobileNo))
	writeJSON(w, http.StatusOK, map[string]string{"result": "success", "id": stored.ID})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	rec, err := h.svc.SetStatus(r.Context(), id, body.Status)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "claim not found")
	case errors.Is(err, ErrBadStatus):
		writeError(w, http.StatusBadRequest, "status must be one of Pending, Approved, In Progress, Completed, Rejected")
	case err != nil:
		h.logger.Error("update status", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		h.logger.Info("claim status updated", zap.String("id", id), zap.String("status", string(rec.Status)))
		writeJSON(w, http.StatusOK, rec)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
