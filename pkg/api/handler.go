// Package api exposes reports, previews, exports and schedules over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/resource/httpadapter"

	"github.com/yourusername/report-slides-app/pkg/export"
	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/mail"
	"github.com/yourusername/report-slides-app/pkg/model"
	"github.com/yourusername/report-slides-app/pkg/preview"
	"github.com/yourusername/report-slides-app/pkg/store"
	"github.com/yourusername/report-slides-app/pkg/templateconfig"
)

// Store is the persistence used by the handlers.
type Store interface {
	CreateReport(report *model.Report) error
	GetReport(orgID int64, id string) (*model.Report, error)
	ListReports(orgID int64) ([]*model.Report, error)
	DeleteReport(orgID int64, id string) error

	CreateSchedule(schedule *model.Schedule) error
	GetSchedule(orgID, id int64) (*model.Schedule, error)
	ListSchedules(orgID int64) ([]*model.Schedule, error)
	UpdateSchedule(schedule *model.Schedule) error
	DeleteSchedule(orgID, id int64) error

	GetRun(orgID, id int64) (*model.Run, error)
	ListRuns(orgID, scheduleID int64) ([]*model.Run, error)

	GetSettings(orgID int64) (*model.Settings, error)
	UpsertSettings(settings *model.Settings) error
}

// Scheduler is the part of the cron scheduler the handlers drive.
type Scheduler interface {
	SetContext(ctx context.Context)
	CalculateNextRun(schedule *model.Schedule) time.Time
	ExecuteSchedule(schedule *model.Schedule)
	ClearBackendCache(orgID int64)
}

// Deps bundles the collaborators of a Handler.
type Deps struct {
	Store      Store
	Scheduler  Scheduler
	Templates  *templateconfig.Store
	Slides     preview.SlideGenerator
	Batches    export.BatchGenerator
	NewBackend func(cfg model.ExportConfig, log *logger.Logger) (export.Backend, error)
	// NewSMTPTester checks an SMTP configuration without sending mail.
	NewSMTPTester func(cfg model.SMTPConfig) SMTPTester
}

// SMTPTester verifies connectivity to a mail server.
type SMTPTester interface {
	TestConnection() error
}

// Handler handles HTTP API requests
type Handler struct {
	deps        Deps
	router      *mux.Router
	adapter     backend.CallResourceHandler
	log         *logger.Logger
	contextOnce sync.Once
}

// NewHandler creates the handler and registers every route.
func NewHandler(deps Deps, log *logger.Logger) *Handler {
	if deps.NewBackend == nil {
		deps.NewBackend = export.NewBackend
	}
	if deps.NewSMTPTester == nil {
		deps.NewSMTPTester = func(cfg model.SMTPConfig) SMTPTester { return mail.NewMailer(cfg) }
	}
	h := &Handler{
		deps:   deps,
		router: mux.NewRouter(),
		log:    logger.OrNop(log).Component("api"),
	}
	h.registerRoutes()
	h.adapter = httpadapter.New(h.router)
	return h
}

func (h *Handler) registerRoutes() {
	r := h.router.PathPrefix("/api").Subrouter()
	r.Use(h.logRequests)

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/reports", h.listReports).Methods(http.MethodGet)
	r.HandleFunc("/reports", h.createReport).Methods(http.MethodPost)
	r.HandleFunc("/reports/{id}", h.getReport).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id}", h.deleteReport).Methods(http.MethodDelete)
	r.HandleFunc("/reports/{id}/previews", h.reportPreviews).Methods(http.MethodPost)
	r.HandleFunc("/reports/{id}/export", h.exportReport).Methods(http.MethodGet)
	r.HandleFunc("/previews/slide", h.slidePreview).Methods(http.MethodPost)

	r.HandleFunc("/schedules", h.listSchedules).Methods(http.MethodGet)
	r.HandleFunc("/schedules", h.createSchedule).Methods(http.MethodPost)
	r.HandleFunc("/schedules/{id:[0-9]+}", h.getSchedule).Methods(http.MethodGet)
	r.HandleFunc("/schedules/{id:[0-9]+}", h.updateSchedule).Methods(http.MethodPut)
	r.HandleFunc("/schedules/{id:[0-9]+}", h.deleteSchedule).Methods(http.MethodDelete)
	r.HandleFunc("/schedules/{id:[0-9]+}/run", h.runSchedule).Methods(http.MethodPost)
	r.HandleFunc("/schedules/{id:[0-9]+}/runs", h.listRuns).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id:[0-9]+}/artifact", h.runArtifact).Methods(http.MethodGet)

	r.HandleFunc("/settings", h.getSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings", h.saveSettings).Methods(http.MethodPost)
	r.HandleFunc("/smtp/test", h.testSMTP).Methods(http.MethodPost)
	r.HandleFunc("/template-config/reload", h.reloadTemplateConfig).Methods(http.MethodPost)
}

// ServeHTTP lets the handler run as a standalone HTTP server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// CallResource implements backend.CallResourceHandler
func (h *Handler) CallResource(ctx context.Context, req *backend.CallResourceRequest, sender backend.CallResourceResponseSender) error {
	// background exports need a context carrying the Grafana config
	h.contextOnce.Do(func() {
		if h.deps.Scheduler != nil {
			h.deps.Scheduler.SetContext(ctx)
		}
	})
	return h.adapter.CallResource(ctx, req, sender)
}

// CheckHealth implements backend.CheckHealthHandler. The plugin is healthy
// when its template configuration loads.
func (h *Handler) CheckHealth(ctx context.Context, req *backend.CheckHealthRequest) (*backend.CheckHealthResult, error) {
	if _, err := h.deps.Templates.Load(); err != nil {
		return &backend.CheckHealthResult{Status: backend.HealthStatusError, Message: err.Error()}, nil
	}
	return &backend.CheckHealthResult{Status: backend.HealthStatusOk, Message: "template configuration loaded"}, nil
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	res, _ := h.CheckHealth(r.Context(), nil)
	if res.Status != backend.HealthStatusOk {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": res.Message})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": res.Message})
}

// Helpers

func getOrgID(r *http.Request) int64 {
	return headerID(r, "X-Grafana-Org-Id")
}

func getUserID(r *http.Request) int64 {
	return headerID(r, "X-Grafana-User-Id")
}

// headerID reads a positive id header, defaulting to 1.
func headerID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(r.Header.Get(name), 10, 64)
	if err != nil || id <= 0 {
		return 1
	}
	return id
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// decodeJSON decodes the request body into dst. An empty body leaves dst as is.
func decodeJSON(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondStoreError maps a store error to 404 or 500.
func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

func respondPDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
