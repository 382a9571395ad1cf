package api

import (
	"net/http"

	"github.com/yourusername/report-slides-app/pkg/mail"
	"github.com/yourusername/report-slides-app/pkg/model"
)

// settings returns the stored settings of an org, or the defaults.
func (h *Handler) settings(orgID int64) (*model.Settings, error) {
	settings, err := h.deps.Store.GetSettings(orgID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return model.DefaultSettings(orgID), nil
	}
	return settings, nil
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	orgID := getOrgID(r)
	settings, err := h.settings(orgID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if settings.SMTPConfig == nil {
		settings.SMTPConfig = model.DefaultSettings(orgID).SMTPConfig
	}
	respondJSON(w, http.StatusOK, settings)
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := decodeJSON(r, &settings); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	settings.OrgID = getOrgID(r)

	if err := h.deps.Store.UpsertSettings(&settings); err != nil {
		respondStoreError(w, err)
		return
	}

	// drop cached settings and backends so the next export uses the new config
	h.deps.Scheduler.ClearBackendCache(settings.OrgID)
	respondJSON(w, http.StatusOK, settings)
}

type smtpTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) testSMTP(w http.ResponseWriter, r *http.Request) {
	var cfg model.SMTPConfig
	if err := decodeJSON(r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := mail.Validate(cfg); err != nil {
		respondJSON(w, http.StatusBadRequest, smtpTestResponse{Message: err.Error()})
		return
	}

	if err := h.deps.NewSMTPTester(cfg).TestConnection(); err != nil {
		h.log.Warn("SMTP test failed", "host", cfg.Host, "port", cfg.Port, "error", err.Error())
		respondJSON(w, http.StatusOK, smtpTestResponse{Message: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, smtpTestResponse{Success: true, Message: "SMTP connection successful"})
}
