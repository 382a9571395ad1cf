// Package store persists reports, export schedules, runs and settings in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/model"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

const sqliteTime = "2006-01-02 15:04:05"

// parseTimestamp accepts the formats SQLite hands back for DATETIME columns.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	formats := []string{
		sqliteTime,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 -0700",
		time.RFC3339Nano,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return &t
		}
	}
	return nil
}

func formatTimestamp(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteTime)
}

// Store handles database operations. Reads go straight to the database,
// writes are serialized through the write queue.
type Store struct {
	db         *sql.DB
	writeQueue *writeQueue
	log        *logger.Logger
}

// NewStore opens (or creates) the database at dbPath and migrates it.
func NewStore(dbPath string, log *logger.Logger) (*Store, error) {
	log = logger.OrNop(log).Component("store")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	s.writeQueue = newWriteQueue(log)

	log.Info("store opened", "path", dbPath, "journal_mode", "wal")
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			org_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			author TEXT,
			published_at DATETIME,
			sections TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_org_id ON reports(org_id)`,
		`CREATE TABLE IF NOT EXISTS export_schedules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			org_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			report_id TEXT NOT NULL,
			interval_type TEXT NOT NULL,
			cron_expr TEXT,
			timezone TEXT NOT NULL,
			recipients TEXT NOT NULL,
			email_subject TEXT NOT NULL,
			email_body TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			last_run_at DATETIME,
			next_run_at DATETIME,
			owner_user_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_export_schedules_org_id ON export_schedules(org_id)`,
		`CREATE INDEX IF NOT EXISTS idx_export_schedules_next_run_at ON export_schedules(enabled, next_run_at)`,
		`CREATE TABLE IF NOT EXISTS export_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			schedule_id INTEGER NOT NULL,
			org_id INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			status TEXT NOT NULL,
			error_text TEXT,
			format TEXT,
			total_slides INTEGER NOT NULL DEFAULT 0,
			rendered_slides INTEGER NOT NULL DEFAULT 0,
			bytes INTEGER NOT NULL DEFAULT 0,
			checksum TEXT,
			artifact_data BLOB,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (schedule_id) REFERENCES export_schedules(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_export_runs_schedule_id ON export_runs(schedule_id)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			org_id INTEGER NOT NULL UNIQUE,
			smtp_config TEXT,
			export_config TEXT NOT NULL,
			limits TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`ALTER TABLE export_runs ADD COLUMN email_sent INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE export_runs ADD COLUMN email_error TEXT`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			if !strings.Contains(err.Error(), "duplicate column name") {
				return fmt.Errorf("migration failed: %w", err)
			}
		}
	}
	return nil
}

// Reports

// CreateReport stores report, assigning a new id when it has none.
func (s *Store) CreateReport(report *model.Report) error {
	return s.writeQueue.submit("create_report", func() error {
		now := time.Now().UTC()
		if report.ID == "" {
			report.ID = uuid.NewString()
		}
		report.CreatedAt, report.UpdatedAt = now, now

		_, err := s.db.Exec(`
			INSERT INTO reports (id, org_id, title, author, published_at, sections, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title, author = excluded.author,
				published_at = excluded.published_at, sections = excluded.sections,
				updated_at = excluded.updated_at`,
			report.ID, report.OrgID, report.Title, report.Author,
			formatTimestamp(report.PublishedAt), report.Sections, now, now,
		)
		return err
	})
}

// GetReport retrieves a report with its sections in stored order.
func (s *Store) GetReport(orgID int64, id string) (*model.Report, error) {
	row := s.db.QueryRow(`
		SELECT id, org_id, title, author, published_at, sections, created_at, updated_at
		FROM reports WHERE id = ? AND org_id = ?`, id, orgID)

	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return report, err
}

// ListReports returns the org's reports, newest first. Sections are included.
func (s *Store) ListReports(orgID int64) ([]*model.Report, error) {
	rows, err := s.db.Query(`
		SELECT id, org_id, title, author, published_at, sections, created_at, updated_at
		FROM reports WHERE org_id = ? ORDER BY created_at DESC, id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]*model.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// DeleteReport removes a report. Schedules pointing at it are left alone and
// will fail their next run.
func (s *Store) DeleteReport(orgID int64, id string) error {
	return s.writeQueue.submit("delete_report", func() error {
		res, err := s.db.Exec("DELETE FROM reports WHERE id = ? AND org_id = ?", id, orgID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scanner) (*model.Report, error) {
	r := &model.Report{}
	var author, publishedAt sql.NullString
	if err := row.Scan(&r.ID, &r.OrgID, &r.Title, &author, &publishedAt, &r.Sections, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Author = author.String
	if publishedAt.Valid {
		r.PublishedAt = parseTimestamp(publishedAt.String)
	}
	return r, nil
}

// Schedules

const scheduleColumns = `id, org_id, name, report_id, interval_type, cron_expr, timezone, recipients,
	email_subject, email_body, enabled, last_run_at, next_run_at, owner_user_id, created_at, updated_at`

func scanSchedule(row scanner) (*model.Schedule, error) {
	sc := &model.Schedule{}
	var cronExpr, lastRunAt, nextRunAt sql.NullString
	err := row.Scan(
		&sc.ID, &sc.OrgID, &sc.Name, &sc.ReportID, &sc.IntervalType, &cronExpr, &sc.Timezone,
		&sc.Recipients, &sc.EmailSubject, &sc.EmailBody, &sc.Enabled, &lastRunAt, &nextRunAt,
		&sc.OwnerUserID, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sc.CronExpr = cronExpr.String
	if lastRunAt.Valid {
		sc.LastRunAt = parseTimestamp(lastRunAt.String)
	}
	if nextRunAt.Valid {
		sc.NextRunAt = parseTimestamp(nextRunAt.String)
	}
	return sc, nil
}

func (s *Store) querySchedules(query string, args ...interface{}) ([]*model.Schedule, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]*model.Schedule, 0)
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// CreateSchedule inserts a schedule and sets its ID.
func (s *Store) CreateSchedule(sc *model.Schedule) error {
	return s.writeQueue.submit("create_schedule", func() error {
		now := time.Now().UTC()
		sc.CreatedAt, sc.UpdatedAt = now, now
		res, err := s.db.Exec(`
			INSERT INTO export_schedules (
				org_id, name, report_id, interval_type, cron_expr, timezone, recipients,
				email_subject, email_body, enabled, next_run_at, owner_user_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sc.OrgID, sc.Name, sc.ReportID, sc.IntervalType, sc.CronExpr, sc.Timezone, sc.Recipients,
			sc.EmailSubject, sc.EmailBody, sc.Enabled, formatTimestamp(sc.NextRunAt), sc.OwnerUserID, now, now,
		)
		if err != nil {
			return err
		}
		sc.ID, err = res.LastInsertId()
		return err
	})
}

// GetSchedule retrieves a schedule by ID.
func (s *Store) GetSchedule(orgID, id int64) (*model.Schedule, error) {
	sc, err := scanSchedule(s.db.QueryRow(
		"SELECT "+scheduleColumns+" FROM export_schedules WHERE id = ? AND org_id = ?", id, orgID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	return sc, err
}

// ListSchedules returns the org's schedules, newest first.
func (s *Store) ListSchedules(orgID int64) ([]*model.Schedule, error) {
	return s.querySchedules(
		"SELECT "+scheduleColumns+" FROM export_schedules WHERE org_id = ? ORDER BY created_at DESC, id DESC", orgID)
}

// GetDueSchedules returns enabled schedules whose next run is at or before now.
func (s *Store) GetDueSchedules(now time.Time) ([]*model.Schedule, error) {
	schedules, err := s.querySchedules(
		"SELECT "+scheduleColumns+` FROM export_schedules
		WHERE enabled = 1 AND (next_run_at IS NULL OR datetime(next_run_at) <= datetime(?))
		ORDER BY next_run_at ASC`, now.UTC().Format(sqliteTime))
	if err != nil {
		return nil, err
	}
	if len(schedules) > 0 {
		s.log.Debug("due schedules", "count", len(schedules))
	}
	return schedules, nil
}

// UpdateSchedule overwrites the mutable fields of a schedule.
func (s *Store) UpdateSchedule(sc *model.Schedule) error {
	return s.writeQueue.submit("update_schedule", func() error {
		sc.UpdatedAt = time.Now().UTC()
		res, err := s.db.Exec(`
			UPDATE export_schedules SET
				name = ?, report_id = ?, interval_type = ?, cron_expr = ?, timezone = ?,
				recipients = ?, email_subject = ?, email_body = ?, enabled = ?,
				last_run_at = ?, next_run_at = ?, updated_at = ?
			WHERE id = ? AND org_id = ?`,
			sc.Name, sc.ReportID, sc.IntervalType, sc.CronExpr, sc.Timezone,
			sc.Recipients, sc.EmailSubject, sc.EmailBody, sc.Enabled,
			formatTimestamp(sc.LastRunAt), formatTimestamp(sc.NextRunAt), sc.UpdatedAt,
			sc.ID, sc.OrgID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("schedule %d: %w", sc.ID, ErrNotFound)
		}
		return nil
	})
}

// DeleteSchedule removes a schedule and, through the foreign key, its runs.
func (s *Store) DeleteSchedule(orgID, id int64) error {
	return s.writeQueue.submit("delete_schedule", func() error {
		_, err := s.db.Exec("DELETE FROM export_schedules WHERE id = ? AND org_id = ?", id, orgID)
		return err
	})
}

// Runs

// CreateRun inserts a run in its initial state and sets its ID.
func (s *Store) CreateRun(run *model.Run) error {
	return s.writeQueue.submit("create_run", func() error {
		run.CreatedAt = time.Now().UTC()
		res, err := s.db.Exec(`
			INSERT INTO export_runs (schedule_id, org_id, started_at, status, format, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ScheduleID, run.OrgID, run.StartedAt.UTC(), run.Status, run.Format, run.CreatedAt,
		)
		if err != nil {
			return err
		}
		run.ID, err = res.LastInsertId()
		return err
	})
}

// UpdateRun records the outcome of a run, including its artifact.
func (s *Store) UpdateRun(run *model.Run) error {
	return s.writeQueue.submit("update_run", func() error {
		_, err := s.db.Exec(`
			UPDATE export_runs SET
				finished_at = ?, status = ?, error_text = ?, format = ?, total_slides = ?,
				rendered_slides = ?, bytes = ?, checksum = ?, artifact_data = ?,
				email_sent = ?, email_error = ?
			WHERE id = ?`,
			run.FinishedAt, run.Status, run.ErrorText, run.Format, run.TotalSlides,
			run.RenderedSlides, run.Bytes, run.Checksum, run.ArtifactData,
			run.EmailSent, run.EmailError, run.ID,
		)
		return err
	})
}

const runColumns = `id, schedule_id, org_id, started_at, finished_at, status, error_text, format,
	total_slides, rendered_slides, bytes, checksum, email_sent, email_error, created_at`

func scanRun(row scanner, extra ...interface{}) (*model.Run, error) {
	run := &model.Run{}
	var finishedAt sql.NullTime
	var errorText, format, checksum, emailError sql.NullString
	dest := []interface{}{
		&run.ID, &run.ScheduleID, &run.OrgID, &run.StartedAt, &finishedAt, &run.Status, &errorText, &format,
		&run.TotalSlides, &run.RenderedSlides, &run.Bytes, &checksum, &run.EmailSent, &emailError, &run.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	run.ErrorText = errorText.String
	run.Format = format.String
	run.Checksum = checksum.String
	run.EmailError = emailError.String
	return run, nil
}

// GetRun retrieves a run together with its artifact.
func (s *Store) GetRun(orgID, id int64) (*model.Run, error) {
	var artifact []byte
	run, err := scanRun(s.db.QueryRow(
		"SELECT "+runColumns+", artifact_data FROM export_runs WHERE id = ? AND org_id = ?", id, orgID), &artifact)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if len(artifact) > 0 {
		run.ArtifactData = artifact
	}
	return run, nil
}

// ListRuns returns the latest 50 runs of a schedule without artifacts.
func (s *Store) ListRuns(orgID, scheduleID int64) ([]*model.Run, error) {
	rows, err := s.db.Query(
		"SELECT "+runColumns+` FROM export_runs
		WHERE schedule_id = ? AND org_id = ? ORDER BY started_at DESC, id DESC LIMIT 50`,
		scheduleID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*model.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneRuns deletes the org's runs that started before cutoff. Start times
// are stored in UTC so the first 19 characters sort chronologically.
func (s *Store) PruneRuns(orgID int64, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writeQueue.submit("prune_runs", func() error {
		res, err := s.db.Exec(
			"DELETE FROM export_runs WHERE org_id = ? AND datetime(substr(started_at, 1, 19)) < datetime(?)",
			orgID, cutoff.UTC().Format(sqliteTime))
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

// Settings

// GetSettings returns the org's settings, or nil when none were saved.
func (s *Store) GetSettings(orgID int64) (*model.Settings, error) {
	st := &model.Settings{}
	var smtp sql.NullString
	err := s.db.QueryRow(`
		SELECT id, org_id, smtp_config, export_config, limits, created_at, updated_at
		FROM settings WHERE org_id = ?`, orgID,
	).Scan(&st.ID, &st.OrgID, &smtp, &st.ExportConfig, &st.Limits, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if smtp.Valid && smtp.String != "" && smtp.String != "null" {
		st.SMTPConfig = &model.SMTPConfig{}
		if err := st.SMTPConfig.Scan(smtp.String); err != nil {
			return nil, fmt.Errorf("decode smtp config: %w", err)
		}
	}
	return st, nil
}

// UpsertSettings creates or replaces the org's settings.
func (s *Store) UpsertSettings(st *model.Settings) error {
	return s.writeQueue.submit("upsert_settings", func() error {
		now := time.Now().UTC()
		st.UpdatedAt = now
		if st.CreatedAt.IsZero() {
			st.CreatedAt = now
		}
		_, err := s.db.Exec(`
			INSERT INTO settings (org_id, smtp_config, export_config, limits, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(org_id) DO UPDATE SET
				smtp_config = excluded.smtp_config, export_config = excluded.export_config,
				limits = excluded.limits, updated_at = excluded.updated_at`,
			st.OrgID, st.SMTPConfig, st.ExportConfig, st.Limits, st.CreatedAt, now,
		)
		if err != nil {
			return err
		}
		return s.db.QueryRow("SELECT id FROM settings WHERE org_id = ?", st.OrgID).Scan(&st.ID)
	})
}

// Close drains pending writes and closes the database.
func (s *Store) Close() error {
	if s.writeQueue != nil {
		s.writeQueue.shutdown()
	}
	return s.db.Close()
}
