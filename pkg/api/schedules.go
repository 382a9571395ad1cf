package api

import (
	"net/http"
	"strconv"

	"github.com/yourusername/report-slides-app/pkg/cron"
	"github.com/yourusername/report-slides-app/pkg/model"
)

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.deps.Store.ListSchedules(getOrgID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if schedules == nil {
		schedules = []*model.Schedule{}
	}
	respondJSON(w, http.StatusOK, schedules)
}

// validateSchedule checks the schedule against the org limits and that the
// report it points at exists.
func (h *Handler) validateSchedule(w http.ResponseWriter, schedule *model.Schedule) bool {
	settings, err := h.settings(schedule.OrgID)
	if err != nil {
		respondStoreError(w, err)
		return false
	}
	if err := model.ValidateSchedule(schedule, &settings.Limits); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if _, err := h.deps.Store.GetReport(schedule.OrgID, schedule.ReportID); err != nil {
		respondStoreError(w, err)
		return false
	}
	return true
}

func (h *Handler) createSchedule(w http.ResponseWriter, r *http.Request) {
	var schedule model.Schedule
	if err := decodeJSON(r, &schedule); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	schedule.OrgID = getOrgID(r)
	schedule.OwnerUserID = getUserID(r)
	if !h.validateSchedule(w, &schedule) {
		return
	}

	if schedule.Enabled {
		next := h.deps.Scheduler.CalculateNextRun(&schedule)
		schedule.NextRunAt = &next
	}

	if err := h.deps.Store.CreateSchedule(&schedule); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, schedule)
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.deps.Store.GetSchedule(getOrgID(r), pathID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, schedule)
}

func (h *Handler) updateSchedule(w http.ResponseWriter, r *http.Request) {
	orgID := getOrgID(r)
	existing, err := h.deps.Store.GetSchedule(orgID, pathID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var schedule model.Schedule
	if err := decodeJSON(r, &schedule); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	schedule.ID = existing.ID
	schedule.OrgID = orgID
	schedule.OwnerUserID = existing.OwnerUserID
	schedule.CreatedAt = existing.CreatedAt
	schedule.LastRunAt = existing.LastRunAt
	if !h.validateSchedule(w, &schedule) {
		return
	}

	schedule.NextRunAt = nil
	if schedule.Enabled {
		next := h.deps.Scheduler.CalculateNextRun(&schedule)
		schedule.NextRunAt = &next
	}

	if err := h.deps.Store.UpdateSchedule(&schedule); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, schedule)
}

func (h *Handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store.DeleteSchedule(getOrgID(r), pathID(r)); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// runSchedule starts an export in the background and returns immediately.
func (h *Handler) runSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.deps.Store.GetSchedule(getOrgID(r), pathID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	h.deps.Scheduler.ExecuteSchedule(schedule)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	orgID := getOrgID(r)
	scheduleID := pathID(r)
	if _, err := h.deps.Store.GetSchedule(orgID, scheduleID); err != nil {
		respondStoreError(w, err)
		return
	}
	runs, err := h.deps.Store.ListRuns(orgID, scheduleID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (h *Handler) runArtifact(w http.ResponseWriter, r *http.Request) {
	run, err := h.deps.Store.GetRun(getOrgID(r), pathID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if len(run.ArtifactData) == 0 {
		respondError(w, http.StatusNotFound, "run has no artifact")
		return
	}
	if run.Checksum != "" {
		w.Header().Set("ETag", strconv.Quote(run.Checksum))
	}
	respondPDF(w, cron.Filename("run-"+strconv.FormatInt(run.ID, 10), run.StartedAt), run.ArtifactData)
}
