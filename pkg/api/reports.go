package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/yourusername/report-slides-app/pkg/cron"
	"github.com/yourusername/report-slides-app/pkg/export"
	"github.com/yourusername/report-slides-app/pkg/model"
	"github.com/yourusername/report-slides-app/pkg/preview"
	)

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.deps.Store.ListReports(getOrgID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if reports == nil {
		reports = []*model.Report{}
	}
	respondJSON(w, http.StatusOK, reports)
}

func (h *Handler) createReport(w http.ResponseWriter, r *http.Request) {
	var report model.Report
	if err := decodeJSON(r, &report); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	report.OrgID = getOrgID(r)
	if err := model.ValidateReport(&report); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.deps.Store.CreateReport(&report); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Store.GetReport(getOrgID(r), mux.Vars(r)["id"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) deleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store.DeleteReport(getOrgID(r), mux.Vars(r)["id"]); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reportPreviews renders the preview batch of a stored report. Slides that
// fail are missing from the batch; the request itself still succeeds.
func (h *Handler) reportPreviews(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Store.GetReport(getOrgID(r), mux.Vars(r)["id"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	var opts preview.BatchOptions
	if err := decodeJSON(r, &opts); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.templatesReady(w) {
		return
	}
	batch := h.deps.Batches.GenerateAllPreviews(r.Context(), report, opts)
	respondJSON(w, http.StatusOK, batch)
}

type slidePreviewRequest struct {
	Section       *model.Section `json:"section"`
	SectionNumber *int           `json:"section_number,omitempty"`
}

type slidePreviewResponse struct {
	Preview *model.PreviewRecord `json:"preview"`
}

// slidePreview renders a single section. A section that cannot be rendered
// yields a null preview.
func (h *Handler) slidePreview(w http.ResponseWriter, r *http.Request) {
	var req slidePreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Section == nil {
		respondError(w, http.StatusBadRequest, "section is required")
		return
	}
	if !h.templatesReady(w) {
		return
	}
	rec := h.deps.Slides.GenerateSlidePreview(r.Context(), req.Section, preview.SlideOptions{SectionNumber: req.SectionNumber})
	respondJSON(w, http.StatusOK, slidePreviewResponse{Preview: rec})
}

// exportReport renders the whole report to PDF with the org's export backend.
func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request) {
	orgID := getOrgID(r)
	report, err := h.deps.Store.GetReport(orgID, mux.Vars(r)["id"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if !h.templatesReady(w) {
		return
	}
	settings, err := h.settings(orgID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	deck := export.BuildDeck(r.Context(), h.deps.Batches, report)
	if len(deck.Slides) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "no slides could be rendered")
		return
	}

	b, err := h.deps.NewBackend(settings.ExportConfig, h.log)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer b.Close()

	data, err := b.Export(r.Context(), deck)
	if err != nil {
		h.log.Error("export failed", "report_id", report.ID, "backend", b.Name(), "error", err.Error())
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("X-Slides-Total", strconv.Itoa(deck.TotalSections))
	w.Header().Set("X-Slides-Missing", strconv.Itoa(deck.Missing()))
	respondPDF(w, cron.Filename(report.Title, time.Now()), data)
}

// templatesReady loads the template configuration and answers 500 when it
// cannot be read.
func (h *Handler) templatesReady(w http.ResponseWriter) bool {
	if _, err := h.deps.Templates.Load(); err != nil {
		h.log.Error("template configuration unavailable", "error", err.Error())
		respondError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	return true
}

type reloadResponse struct {
	SlideTypes     []string `json:"slide_types"`
	MissingLayouts []string `json:"missing_layouts,omitempty"`
}

// reloadTemplateConfig drops the cached template document and reads it again.
func (h *Handler) reloadTemplateConfig(w http.ResponseWriter, r *http.Request) {
	h.deps.Templates.Clear()
	cfg, err := h.deps.Templates.Load()
	if err != nil {
		h.log.Error("template configuration reload failed", "error", err.Error())
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keys := make([]string, 0, len(cfg.SlideTypes))
	for k := range cfg.SlideTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h.log.Info("template configuration reloaded", "slide_types", len(keys), "missing", len(cfg.MissingLayouts))
	respondJSON(w, http.StatusOK, reloadResponse{SlideTypes: keys, MissingLayouts: cfg.MissingLayouts})
}
