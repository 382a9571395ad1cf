// Package cron runs scheduled deck exports.
package cron

import (
	"context"
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/report-slides-app/pkg/export"
	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/mail"
	"github.com/yourusername/report-slides-app/pkg/model"
)

// Store is the persistence the scheduler needs.
type Store interface {
	GetDueSchedules(now time.Time) ([]*model.Schedule, error)
	UpdateSchedule(schedule *model.Schedule) error
	GetReport(orgID int64, id string) (*model.Report, error)
	GetSettings(orgID int64) (*model.Settings, error)
	CreateRun(run *model.Run) error
	UpdateRun(run *model.Run) error
	PruneRuns(orgID int64, cutoff time.Time) (int64, error)
}

// DeckSender delivers an exported deck.
type DeckSender interface {
	SendDeck(recipients model.Recipients, subject, body string, attachment []byte, filename string) error
}

// Options tune a Scheduler. Zero values select the defaults.
type Options struct {
	MaxConcurrent int
	MaxRetries    int
	// Backoff returns the pause before retry attempt n (n >= 1).
	Backoff    func(attempt int) time.Duration
	NewBackend func(cfg model.ExportConfig, log *logger.Logger) (export.Backend, error)
	NewSender  func(cfg model.SMTPConfig) DeckSender
}

func quadraticBackoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}

// Scheduler checks for due schedules every minute and exports them.
type Scheduler struct {
	store      Store
	slides     export.BatchGenerator
	cron       *cron.Cron
	workerPool chan struct{}
	baseCtx    context.Context
	log        *logger.Logger

	maxRetries int
	backoff    func(int) time.Duration
	newBackend func(model.ExportConfig, *logger.Logger) (export.Backend, error)
	newSender  func(model.SMTPConfig) DeckSender
	now        func() time.Time

	backends      map[int64]export.Backend  // per-org, reused across runs
	settingsCache map[int64]*model.Settings // per-org
	cacheMutex    sync.RWMutex
	wg            sync.WaitGroup
}

// NewScheduler creates a scheduler. Call Start to begin ticking.
func NewScheduler(st Store, slides export.BatchGenerator, opts Options, log *logger.Logger) *Scheduler {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff == nil {
		opts.Backoff = quadraticBackoff
	}
	if opts.NewBackend == nil {
		opts.NewBackend = export.NewBackend
	}
	if opts.NewSender == nil {
		opts.NewSender = func(cfg model.SMTPConfig) DeckSender { return mail.NewMailer(cfg) }
	}
	return &Scheduler{
		store:         st,
		slides:        slides,
		cron:          cron.New(cron.WithSeconds()),
		workerPool:    make(chan struct{}, opts.MaxConcurrent),
		baseCtx:       context.Background(),
		log:           logger.OrNop(log).Component("scheduler"),
		maxRetries:    opts.MaxRetries,
		backoff:       opts.Backoff,
		newBackend:    opts.NewBackend,
		newSender:     opts.NewSender,
		now:           time.Now,
		backends:      make(map[int64]export.Backend),
		settingsCache: make(map[int64]*model.Settings),
	}
}

// SetContext sets the context background runs are derived from.
func (s *Scheduler) SetContext(ctx context.Context) {
	s.baseCtx = ctx
}

// Start registers the minute tick and starts the cron runner.
func (s *Scheduler) Start() error {
	const tick = "0 * * * * *"
	if _, err := s.cron.AddFunc(tick, s.checkDueSchedules); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", "tick", tick)
	return nil
}

// Stop waits for running exports and closes every cached backend.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()

	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	for orgID, b := range s.backends {
		if err := b.Close(); err != nil {
			s.log.Warn("failed to close export backend", "org_id", orgID, "error", err.Error())
		}
		delete(s.backends, orgID)
	}
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) getCachedSettings(orgID int64) (*model.Settings, error) {
	s.cacheMutex.RLock()
	cached, ok := s.settingsCache[orgID]
	s.cacheMutex.RUnlock()
	if ok {
		return cached, nil
	}

	settings, err := s.store.GetSettings(orgID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = model.DefaultSettings(orgID)
		// no SMTP until the org configures it
		settings.SMTPConfig = nil
	}

	s.cacheMutex.Lock()
	s.settingsCache[orgID] = settings
	s.cacheMutex.Unlock()
	s.log.Debug("settings cached", "org_id", orgID)
	return settings, nil
}

func (s *Scheduler) getBackend(orgID int64, cfg model.ExportConfig) (export.Backend, error) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	if b, ok := s.backends[orgID]; ok {
		return b, nil
	}
	b, err := s.newBackend(cfg, s.log)
	if err != nil {
		return nil, err
	}
	s.backends[orgID] = b
	s.log.Info("export backend created", "org_id", orgID, "backend", b.Name())
	return b, nil
}

// ClearBackendCache drops the org's cached settings and closes its backend,
// so the next run picks up changed settings.
func (s *Scheduler) ClearBackendCache(orgID int64) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	if b, ok := s.backends[orgID]; ok {
		if err := b.Close(); err != nil {
			s.log.Warn("failed to close export backend", "org_id", orgID, "error", err.Error())
		}
		delete(s.backends, orgID)
	}
	delete(s.settingsCache, orgID)
}

func (s *Scheduler) checkDueSchedules() {
	schedules, err := s.store.GetDueSchedules(s.now())
	if err != nil {
		s.log.Error("failed to get due schedules", "error", err.Error())
		return
	}

	for _, schedule := range schedules {
		// advance first so a slow run is not picked up again next tick
		next := s.CalculateNextRun(schedule)
		schedule.NextRunAt = &next
		if err := s.store.UpdateSchedule(schedule); err != nil {
			s.log.Error("failed to advance schedule", "schedule_id", schedule.ID, "error", err.Error())
			continue
		}
		s.log.Info("schedule due", "schedule_id", schedule.ID, "name", schedule.Name, "next_run_at", next)
		s.ExecuteSchedule(schedule)
	}
}

// ExecuteSchedule runs schedule in the background.
func (s *Scheduler) ExecuteSchedule(schedule *model.Schedule) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunNow(s.baseCtx, schedule)
	}()
}

// RunNow exports schedule synchronously and returns the finished run.
func (s *Scheduler) RunNow(ctx context.Context, schedule *model.Schedule) *model.Run {
	log := s.log.With("schedule_id", schedule.ID, "org_id", schedule.OrgID)

	s.workerPool <- struct{}{}
	defer func() { <-s.workerPool }()

	run := &model.Run{
		ScheduleID: schedule.ID,
		OrgID:      schedule.OrgID,
		StartedAt:  s.now().UTC(),
		Status:     model.RunStatusRunning,
		Format:     "pdf",
	}
	if err := s.store.CreateRun(run); err != nil {
		log.Error("failed to create run", "error", err.Error())
		return nil
	}
	log = log.With("run_id", run.ID)

	err := s.executeWithRetry(ctx, log, schedule, run)

	finished := s.now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = model.RunStatusFailed
		run.ErrorText = err.Error()
		log.Error("export failed", "error", err.Error())
	} else {
		run.Status = model.RunStatusCompleted
		log.Info("export completed",
			"rendered_slides", run.RenderedSlides,
			"total_slides", run.TotalSlides,
			"bytes", run.Bytes,
			"email_sent", run.EmailSent,
		)
	}
	if err := s.store.UpdateRun(run); err != nil {
		log.Error("failed to update run", "error", err.Error())
	}

	schedule.LastRunAt = &run.StartedAt
	if err := s.store.UpdateSchedule(schedule); err != nil {
		log.Warn("failed to record last run", "error", err.Error())
	}
	s.prune(log, schedule.OrgID)
	return run
}

func (s *Scheduler) executeWithRetry(ctx context.Context, log *logger.Logger, schedule *model.Schedule, run *model.Run) error {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			wait := s.backoff(attempt)
			log.Warn("retrying export", "attempt", attempt+1, "max_attempts", s.maxRetries, "backoff", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = s.executeOnce(ctx, log, schedule, run); lastErr == nil {
			return nil
		}
		log.Warn("export attempt failed", "attempt", attempt+1, "error", lastErr.Error())
	}
	return fmt.Errorf("all %d attempts failed: %w", s.maxRetries, lastErr)
}

func (s *Scheduler) executeOnce(ctx context.Context, log *logger.Logger, schedule *model.Schedule, run *model.Run) error {
	settings, err := s.getCachedSettings(schedule.OrgID)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	report, err := s.store.GetReport(schedule.OrgID, schedule.ReportID)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}

	deck := export.BuildDeck(ctx, s.slides, report)
	run.TotalSlides = deck.TotalSections
	run.RenderedSlides = len(deck.Slides)
	if len(deck.Slides) == 0 {
		return fmt.Errorf("report %q rendered no slides", report.Title)
	}
	if missing := deck.Missing(); missing > 0 {
		log.Warn("some sections were not rendered", "missing", missing)
	}

	backend, err := s.getBackend(schedule.OrgID, settings.ExportConfig)
	if err != nil {
		return fmt.Errorf("failed to create export backend: %w", err)
	}
	data, err := backend.Export(ctx, deck)
	if err != nil {
		return fmt.Errorf("failed to export deck: %w", err)
	}

	run.Bytes = int64(len(data))
	run.Checksum = fmt.Sprintf("%x", sha256.Sum256(data))
	run.ArtifactData = data

	// the artifact is downloadable even if mail fails below
	if err := s.store.UpdateRun(run); err != nil {
		log.Warn("failed to store artifact", "error", err.Error())
	}

	s.deliver(log, schedule, report, run, settings, data)
	return nil
}

// deliver mails the artifact. Delivery problems are recorded on the run and
// never fail the export.
func (s *Scheduler) deliver(log *logger.Logger, schedule *model.Schedule, report *model.Report, run *model.Run, settings *model.Settings, data []byte) {
	run.EmailSent = false
	switch {
	case settings.SMTPConfig == nil:
		run.EmailError = "SMTP not configured"
		return
	case len(schedule.Recipients.To) == 0:
		run.EmailError = "no recipients"
		return
	}
	if max := settings.Limits.MaxAttachmentSizeMB; max > 0 && run.Bytes > int64(max)<<20 {
		run.EmailError = fmt.Sprintf("attachment is %d bytes, limit is %d MB", run.Bytes, max)
		log.Warn("attachment too large for email", "bytes", run.Bytes, "limit_mb", max)
		return
	}

	vars := map[string]string{
		"schedule.name":   schedule.Name,
		"report.title":    report.Title,
		"report.author":   report.Author,
		"run.started_at":  run.StartedAt.Format(time.RFC1123),
		"slides.rendered": fmt.Sprint(run.RenderedSlides),
		"slides.total":    fmt.Sprint(run.TotalSlides),
	}
	subject := mail.InterpolateTemplate(schedule.EmailSubject, vars)
	body := mail.InterpolateTemplate(schedule.EmailBody, vars)

	sender := s.newSender(*settings.SMTPConfig)
	if err := sender.SendDeck(schedule.Recipients, subject, body, data, Filename(report.Title, run.StartedAt)); err != nil {
		run.EmailError = err.Error()
		log.Warn("failed to send deck", "error", err.Error())
		return
	}
	run.EmailSent = true
	run.EmailError = ""
}

func (s *Scheduler) prune(log *logger.Logger, orgID int64) {
	settings, err := s.getCachedSettings(orgID)
	if err != nil || settings.Limits.RetentionDays <= 0 {
		return
	}
	cutoff := s.now().AddDate(0, 0, -settings.Limits.RetentionDays)
	n, err := s.store.PruneRuns(orgID, cutoff)
	if err != nil {
		log.Warn("failed to prune runs", "error", err.Error())
		return
	}
	if n > 0 {
		log.Info("pruned old runs", "deleted", n, "retention_days", settings.Limits.RetentionDays)
	}
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename builds the attachment name for a deck exported at t.
func Filename(title string, t time.Time) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(title, "-"), "-")
	if base == "" {
		base = "deck"
	}
	return fmt.Sprintf("%s-%s.pdf", base, t.UTC().Format("2006-01-02-150405"))
}

// CalculateNextRun returns the schedule's next run after now, in UTC.
func (s *Scheduler) CalculateNextRun(schedule *model.Schedule) time.Time {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	next, err := NextRun(schedule, now())
	if err != nil && s.log != nil {
		s.log.Warn("invalid schedule, falling back", "schedule_id", schedule.ID, "error", err.Error())
	}
	return next
}

// CronExpression returns the schedule's expression, deriving one from the
// interval type when none is set.
func CronExpression(schedule *model.Schedule) string {
	if schedule.CronExpr != "" {
		return schedule.CronExpr
	}
	switch schedule.IntervalType {
	case "weekly":
		return "0 0 * * 1"
	case "monthly":
		return "0 0 1 * *"
	default:
		return "0 0 * * *"
	}
}

// NextRun evaluates the schedule's expression in its timezone. An unknown
// timezone falls back to UTC and an unparsable expression to one hour from
// now; both are reported through the returned error alongside a usable time.
func NextRun(schedule *model.Schedule, now time.Time) (time.Time, error) {
	var problem error
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		loc = time.UTC
		problem = fmt.Errorf("timezone %q: %w", schedule.Timezone, err)
	}

	expr, err := cronexpr.Parse(CronExpression(schedule))
	if err != nil {
		return now.Add(time.Hour).UTC().Truncate(time.Second), fmt.Errorf("cron expression: %w", err)
	}
	return expr.Next(now.In(loc)).UTC().Truncate(time.Second), problem
}
