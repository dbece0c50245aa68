package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"mpc-plus/internal/audit"
	"mpc-plus/internal/auth"
	"mpc-plus/internal/observability/metrics"
	qaapp "mpc-plus/internal/qa/application"
	qa "mpc-plus/internal/qa/domain"
	"mpc-plus/internal/qa/interfaces"
)

const (
	apiPrefix     = "/api/v1"
	recordsPrefix = apiPrefix + "/records/"
	exportsPrefix = apiPrefix + "/exports/"
)

// Queries is the read side used by the handler.
type Queries interface {
	Calendar(ctx context.Context, machineID string, year int, month time.Month) ([]qa.DayStatus, error)
	Sessions(ctx context.Context, filter qa.RecordFilter) ([]qaapp.SessionView, error)
	Records(ctx context.Context, filter qa.RecordFilter) ([]qaapp.EvaluatedRecord, error)
	Record(ctx context.Context, id string) (*qaapp.EvaluatedRecord, error)
	Thresholds(ctx context.Context) ([]qa.Threshold, error)
}

// Commands is the write side used by the handler.
type Commands interface {
	Approve(ctx context.Context, id string, actor qaapp.Actor) (*qa.CheckRecord, error)
	Delete(ctx context.Context, id string, actor qaapp.Actor) error
}

// Handler serves calendar, session, record, threshold and export endpoints.
type Handler struct {
	queries  Queries
	commands Commands
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler constructs a handler.
func NewHandler(queries Queries, commands Commands, logger *zap.Logger) (*Handler, error) {
	if queries == nil {
		return nil, errors.New("qa handler: nil query service")
	}
	if commands == nil {
		return nil, errors.New("qa handler: nil record service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{queries: queries, commands: commands, logger: logger, now: time.Now}, nil
}

// Register mounts the handler on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(apiPrefix+"/calendar", h)
	mux.Handle(apiPrefix+"/sessions", h)
	mux.Handle(apiPrefix+"/records", h)
	mux.Handle(recordsPrefix, h)
	mux.Handle(apiPrefix+"/thresholds", h)
	mux.Handle(exportsPrefix, h)
}

// ServeHTTP routes /api/v1 requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == apiPrefix+"/calendar":
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		h.handleCalendar(w, r)
	case path == apiPrefix+"/sessions":
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		h.handleSessions(w, r)
	case path == apiPrefix+"/records":
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		h.handleRecords(w, r)
	case strings.HasPrefix(path, recordsPrefix):
		h.handleRecord(w, r)
	case path == apiPrefix+"/thresholds":
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		h.handleThresholds(w, r)
	case strings.HasPrefix(path, exportsPrefix):
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		h.handleExport(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	machineID, year, month, err := parseMonthQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	days, err := h.queries.Calendar(r.Context(), machineID, year, month)
	if err != nil {
		h.respondError(w, r, "calendar", err)
		return
	}
	writeJSON(w, days)
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRecordFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sessions, err := h.queries.Sessions(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, "sessions", err)
		return
	}
	writeJSON(w, sessions)
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRecordFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	records, err := h.queries.Records(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, "records", err)
		return
	}
	writeJSON(w, records)
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, recordsPrefix), "/")
	id := parts[0]
	if id == "" || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if len(parts) == 2 {
		if parts[1] != "approve" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		record, err := h.commands.Approve(r.Context(), id, actorFrom(r))
		if err != nil {
			h.respondError(w, r, "approve", err)
			return
		}
		writeJSON(w, record)
		return
	}

	switch r.Method {
	case http.MethodGet:
		record, err := h.queries.Record(r.Context(), id)
		if err != nil {
			h.respondError(w, r, "record", err)
			return
		}
		writeJSON(w, record)
	case http.MethodDelete:
		if err := h.commands.Delete(r.Context(), id, actorFrom(r)); err != nil {
			h.respondError(w, r, "delete", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleThresholds(w http.ResponseWriter, r *http.Request) {
	thresholds, err := h.queries.Thresholds(r.Context())
	if err != nil {
		h.respondError(w, r, "thresholds", err)
		return
	}
	writeJSON(w, thresholds)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, exportsPrefix)
	format, ok := strings.CutPrefix(name, "calendar.")
	if !ok || interfaces.ContentType(format) == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	machineID, year, month, err := parseMonthQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	days, err := h.queries.Calendar(r.Context(), machineID, year, month)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.respondError(w, r, "export", err)
		return
	}
	data, err := interfaces.BuildCalendar(format, interfaces.CalendarReport{
		MachineID:   machineID,
		Year:        year,
		Month:       month,
		Days:        days,
		GeneratedAt: h.now().UTC(),
	})
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.logger.Error("calendar export failed", zap.String("format", format), zap.Error(err))
		http.Error(w, "export: render failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))

	filename := "calendar-" + machineID + "-" + strconv.Itoa(year) + "-" + twoDigits(int(month)) + "." + format
	w.Header().Set("Content-Type", interfaces.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(data)
}

// respondError maps service errors to status codes. Store failures return the
// operation and a short reason only.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, qa.ErrRecordNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	case errors.Is(err, qa.ErrEmptyID),
		errors.Is(err, qa.ErrEmptyMachineID),
		errors.Is(err, qa.ErrInvalidMonth),
		errors.Is(err, qa.ErrInvalidCategory):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, qaapp.ErrEmptyApprover):
		http.Error(w, "approver identity required", http.StatusForbidden)
	default:
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		http.Error(w, op+": store unavailable", http.StatusInternalServerError)
	}
}

func actorFrom(r *http.Request) qaapp.Actor {
	id, _ := auth.IdentityFromContext(r.Context())
	return qaapp.Actor{
		Subject:   id.Subject,
		Role:      string(id.Role),
		IP:        audit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func parseMonthQuery(r *http.Request) (string, int, time.Month, error) {
	query := r.URL.Query()
	machineID := strings.TrimSpace(query.Get("machine_id"))
	if machineID == "" {
		return "", 0, 0, errors.New("machine_id is required")
	}
	year, err := strconv.Atoi(query.Get("year"))
	if err != nil || year < 1 {
		return "", 0, 0, errors.New("year must be a positive integer")
	}
	month, err := strconv.Atoi(query.Get("month"))
	if err != nil || month < 1 || month > 12 {
		return "", 0, 0, errors.New("month must be 1-12")
	}
	return machineID, year, time.Month(month), nil
}

func parseRecordFilter(r *http.Request) (qa.RecordFilter, error) {
	query := r.URL.Query()
	filter := qa.RecordFilter{
		MachineID: strings.TrimSpace(query.Get("machine_id")),
		Variant:   strings.TrimSpace(query.Get("variant")),
	}
	if value := query.Get("category"); value != "" {
		category, err := qa.ParseCategory(value)
		if err != nil {
			return filter, errors.New("category must be beam or geometry")
		}
		filter.CheckCategory = category
	}
	var err error
	if filter.Date, err = parseDateQuery(r, "date"); err != nil {
		return filter, err
	}
	if filter.StartDate, err = parseDateQuery(r, "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDateQuery(r, "end_date"); err != nil {
		return filter, err
	}
	if !filter.StartDate.IsZero() && !filter.EndDate.IsZero() && filter.EndDate.Before(filter.StartDate) {
		return filter, errors.New("end_date must not be before start_date")
	}
	return filter, nil
}

func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(qa.DateLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be YYYY-MM-DD")
	}
	return parsed.UTC(), nil
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
