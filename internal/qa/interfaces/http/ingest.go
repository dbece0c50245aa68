package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mpc-plus/internal/extraction"
	"mpc-plus/internal/observability/metrics"
	qaapp "mpc-plus/internal/qa/application"
	qa "mpc-plus/internal/qa/domain"
)

// IngestPath is the signed folder ingest trigger.
const IngestPath = "/ingest/folders"

// FolderIngester stores the record extracted from one run folder.
type FolderIngester interface {
	Ingest(ctx context.Context, path string) (*qa.CheckRecord, error)
}

// IngestHandler triggers ingestion of a run folder by path.
type IngestHandler struct {
	ingester FolderIngester
	logger   *zap.Logger
}

type ingestRequest struct {
	Path string `json:"path"`
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(ingester FolderIngester, logger *zap.Logger) (*IngestHandler, error) {
	if ingester == nil {
		return nil, errors.New("ingest handler: nil ingester")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{ingester: ingester, logger: logger}, nil
}

// ServeHTTP handles POST /ingest/folders.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != IngestPath {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	start := time.Now()
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncIngestError("invalid_json")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		metrics.IncIngestError("missing_path")
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	record, err := h.ingester.Ingest(r.Context(), req.Path)
	if err != nil {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		h.respondError(w, req.Path, err)
		return
	}
	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(record)
}

func (h *IngestHandler) respondError(w http.ResponseWriter, path string, err error) {
	if code := extraction.CodeOf(err); code != "" {
		metrics.IncIngestError(string(code))
		status := http.StatusUnprocessableEntity
		if code == extraction.CodeSourceNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, "extraction: "+string(code), status)
		return
	}
	switch {
	case errors.Is(err, qaapp.ErrNoMeasurements), errors.Is(err, qaapp.ErrUnknownMachine):
		metrics.IncIngestError("unusable_run")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, qa.ErrRecordExists):
		metrics.IncIngestError("duplicate")
		http.Error(w, "record already exists", http.StatusConflict)
	default:
		metrics.IncIngestError("store")
		h.logger.Error("folder ingest failed", zap.String("path", path), zap.Error(err))
		http.Error(w, "ingest: store unavailable", http.StatusInternalServerError)
	}
}
