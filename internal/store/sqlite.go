package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := database.Exec(pragma); err != nil {
			database.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: database}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS search_sessions (
	id                 TEXT PRIMARY KEY,
	queries            TEXT NOT NULL,
	industry           TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	city               TEXT NOT NULL DEFAULT '',
	state_province     TEXT NOT NULL DEFAULT '',
	country            TEXT NOT NULL DEFAULT '',
	results_limit      INTEGER NOT NULL DEFAULT 10,
	filters            TEXT NOT NULL DEFAULT '{}',
	total_results      INTEGER NOT NULL DEFAULT 0,
	successful_queries INTEGER NOT NULL DEFAULT 0,
	search_time_secs   REAL NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'pending',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS search_results (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL REFERENCES search_sessions(id),
	position     INTEGER NOT NULL DEFAULT 0,
	title        TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	display_url  TEXT NOT NULL DEFAULT '',
	snippet      TEXT NOT NULL DEFAULT '',
	query        TEXT NOT NULL DEFAULT '',
	is_processed INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (session_id, url)
);

CREATE TABLE IF NOT EXISTS llm_processing_sessions (
	id                 TEXT PRIMARY KEY,
	search_session_id  TEXT,
	total_results      INTEGER NOT NULL DEFAULT 0,
	accepted           INTEGER NOT NULL DEFAULT 0,
	rejected           INTEGER NOT NULL DEFAULT 0,
	errors             INTEGER NOT NULL DEFAULT 0,
	extraction_quality REAL NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'processing',
	started_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	ended_at           DATETIME
);

CREATE TABLE IF NOT EXISTS llm_processing_results (
	id                   TEXT PRIMARY KEY,
	search_result_id     TEXT NOT NULL,
	llm_session_id       TEXT NOT NULL REFERENCES llm_processing_sessions(id),
	status               TEXT NOT NULL,
	confidence           REAL NOT NULL DEFAULT 0,
	business             TEXT,
	rejection_reason     TEXT NOT NULL DEFAULT '',
	error_message        TEXT NOT NULL DEFAULT '',
	prompt               TEXT NOT NULL DEFAULT '',
	raw_response         TEXT NOT NULL DEFAULT '',
	processing_time_secs REAL NOT NULL DEFAULT 0,
	business_id          TEXT NOT NULL DEFAULT '',
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (search_result_id, llm_session_id)
);

CREATE TABLE IF NOT EXISTS businesses (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	website        TEXT NOT NULL UNIQUE,
	city           TEXT NOT NULL DEFAULT '',
	state_province TEXT NOT NULL DEFAULT '',
	country        TEXT NOT NULL DEFAULT '',
	categories     TEXT NOT NULL DEFAULT '[]',
	confidence     REAL NOT NULL DEFAULT 0,
	source_url     TEXT NOT NULL DEFAULT '',
	notion_page_id TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	progress      INTEGER NOT NULL DEFAULT 0,
	poll_url      TEXT NOT NULL DEFAULT '',
	metadata      TEXT NOT NULL DEFAULT '{}',
	result        TEXT,
	error         TEXT NOT NULL DEFAULT '',
	poll_failures INTEGER NOT NULL DEFAULT 0,
	submitted_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at  DATETIME,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_search_sessions_status ON search_sessions(status);
CREATE INDEX IF NOT EXISTS idx_search_results_session ON search_results(session_id);
CREATE INDEX IF NOT EXISTS idx_llm_results_session ON llm_processing_results(llm_session_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) CreateSearchSession(ctx context.Context, sess model.SearchSession) (*model.SearchSession, error) {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	if sess.Status == "" {
		sess.Status = model.SessionStatusPending
	}

	queriesJSON, err := json.Marshal(sess.Queries)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal queries")
	}
	filtersJSON, err := json.Marshal(sess.Filters)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal filters")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_sessions (id, queries, industry, location, city, state_province, country, results_limit, filters, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, string(queriesJSON), sess.Industry, sess.Location, sess.City, sess.StateProvince,
		sess.Country, sess.ResultsLimit, string(filtersJSON), string(sess.Status), sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert search session")
	}
	return &sess, nil
}

func scanSQLiteSession(row scannable) (*model.SearchSession, error) {
	var sess model.SearchSession
	var queriesJSON, filtersJSON string
	err := row.Scan(&sess.ID, &queriesJSON, &sess.Industry, &sess.Location, &sess.City,
		&sess.StateProvince, &sess.Country, &sess.ResultsLimit, &filtersJSON,
		&sess.TotalResults, &sess.SuccessfulQueries, &sess.SearchTimeSecs,
		&sess.Status, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(queriesJSON), &sess.Queries); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal queries")
	}
	if err := json.Unmarshal([]byte(filtersJSON), &sess.Filters); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal filters")
	}
	return &sess, nil
}

func (s *SQLiteStore) GetSearchSession(ctx context.Context, id string) (*model.SearchSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+searchSessionCols+` FROM search_sessions WHERE id = ?`, id)
	sess, err := scanSQLiteSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get search session %s", id)
	}
	return sess, nil
}

func (s *SQLiteStore) ListSearchSessions(ctx context.Context, filter SessionFilter) ([]model.SearchSession, error) {
	query := `SELECT ` + searchSessionCols + ` FROM search_sessions WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Industry != "" {
		query += ` AND industry = ?`
		args = append(args, filter.Industry)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list search sessions")
	}
	defer rows.Close()

	var sessions []model.SearchSession
	for rows.Next() {
		sess, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search session")
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list search sessions iterate")
}

func (s *SQLiteStore) AddSearchResults(ctx context.Context, sessionID string, results []model.SearchResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO search_results (id, session_id, position, title, url, display_url, snippet, query, is_processed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert result")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	stored := 0
	for _, r := range results {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		res, err := stmt.ExecContext(ctx, id, sessionID, r.Position, r.Title, r.URL, r.DisplayURL, r.Snippet, r.Query, now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert search result %s", r.URL)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "rows affected")
		}
		stored += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return stored, nil
}

func (s *SQLiteStore) CompleteSearchSession(ctx context.Context, sessionID string, status model.SessionStatus, successfulQueries int, searchTimeSecs float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE search_sessions SET
			total_results = (SELECT COUNT(*) FROM search_results WHERE session_id = ?),
			successful_queries = ?,
			search_time_secs = ?,
			status = ?,
			updated_at = ?
		 WHERE id = ?`,
		sessionID, successfulQueries, searchTimeSecs, string(status), time.Now().UTC(), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete search session %s", sessionID)
	}
	return checkRowsAffected(res, "search session", sessionID)
}

func (s *SQLiteStore) ListSearchResults(ctx context.Context, sessionID string) ([]model.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, position, title, url, display_url, snippet, query, is_processed, created_at
		 FROM search_results WHERE session_id = ? ORDER BY position, created_at`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list search results %s", sessionID)
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Position, &r.Title, &r.URL,
			&r.DisplayURL, &r.Snippet, &r.Query, &r.IsProcessed, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list search results iterate")
}

func (s *SQLiteStore) MarkResultProcessed(ctx context.Context, resultID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE search_results SET is_processed = 1 WHERE id = ?`, resultID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark result processed %s", resultID)
	}
	return checkRowsAffected(res, "search result", resultID)
}

func (s *SQLiteStore) CreateLLMSession(ctx context.Context, searchSessionID string, totalResults int) (*model.LLMProcessingSession, error) {
	sess := model.LLMProcessingSession{
		ID:              uuid.New().String(),
		SearchSessionID: searchSessionID,
		TotalResults:    totalResults,
		Status:          model.SessionStatusProcessing,
		StartedAt:       time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_processing_sessions (id, search_session_id, total_results, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.SearchSessionID, sess.TotalResults, string(sess.Status), sess.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert llm session")
	}
	return &sess, nil
}

func (s *SQLiteStore) RecordLLMResult(ctx context.Context, res model.LLMProcessingResult) (*model.LLMProcessingResult, error) {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	res.CreatedAt = time.Now().UTC()

	var businessJSON sql.NullString
	if res.Business != nil {
		data, err := json.Marshal(res.Business)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal business")
		}
		businessJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO llm_processing_results
			(id, search_result_id, llm_session_id, status, confidence, business, rejection_reason, error_message, prompt, raw_response, processing_time_secs, business_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.SearchResultID, res.LLMSessionID, string(res.Status), res.Confidence,
		businessJSON, res.RejectionReason, res.ErrorMessage, res.Prompt, res.RawResponse,
		res.ProcessingTimeSecs, res.BusinessID, res.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert llm result")
	}
	return &res, nil
}

func (s *SQLiteStore) CompleteLLMSession(ctx context.Context, id string, accepted, rejected, errs int, quality float64, status model.SessionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE llm_processing_sessions SET accepted = ?, rejected = ?, errors = ?,
			extraction_quality = ?, status = ?, ended_at = ?
		 WHERE id = ?`,
		accepted, rejected, errs, quality, string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete llm session %s", id)
	}
	return checkRowsAffected(res, "llm session", id)
}

func (s *SQLiteStore) GetLLMSession(ctx context.Context, id string) (*model.LLMProcessingSession, error) {
	var sess model.LLMProcessingSession
	var searchSessionID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, search_session_id, total_results, accepted, rejected, errors, extraction_quality, status, started_at, ended_at
		 FROM llm_processing_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &searchSessionID, &sess.TotalResults, &sess.Accepted, &sess.Rejected,
		&sess.Errors, &sess.ExtractionQuality, &sess.Status, &sess.StartedAt, &sess.EndedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get llm session %s", id)
	}
	sess.SearchSessionID = searchSessionID.String
	return &sess, nil
}

func (s *SQLiteStore) ListLLMSessions(ctx context.Context, searchSessionID string) ([]model.LLMProcessingSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, search_session_id, total_results, accepted, rejected, errors, extraction_quality, status, started_at, ended_at
		 FROM llm_processing_sessions WHERE search_session_id = ? ORDER BY started_at`,
		searchSessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list llm sessions %s", searchSessionID)
	}
	defer rows.Close()

	var sessions []model.LLMProcessingSession
	for rows.Next() {
		var sess model.LLMProcessingSession
		var parentID sql.NullString
		if err := rows.Scan(&sess.ID, &parentID, &sess.TotalResults, &sess.Accepted, &sess.Rejected,
			&sess.Errors, &sess.ExtractionQuality, &sess.Status, &sess.StartedAt, &sess.EndedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan llm session")
		}
		sess.SearchSessionID = parentID.String
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list llm sessions iterate")
}

func (s *SQLiteStore) ListLLMResults(ctx context.Context, llmSessionID string) ([]model.LLMProcessingResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, search_result_id, llm_session_id, status, confidence, business, rejection_reason, error_message, prompt, raw_response, processing_time_secs, business_id, created_at
		 FROM llm_processing_results WHERE llm_session_id = ? ORDER BY created_at`,
		llmSessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list llm results %s", llmSessionID)
	}
	defer rows.Close()

	var results []model.LLMProcessingResult
	for rows.Next() {
		var r model.LLMProcessingResult
		var businessJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.SearchResultID, &r.LLMSessionID, &r.Status, &r.Confidence,
			&businessJSON, &r.RejectionReason, &r.ErrorMessage, &r.Prompt, &r.RawResponse,
			&r.ProcessingTimeSecs, &r.BusinessID, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan llm result")
		}
		if businessJSON.Valid {
			r.Business = &model.Business{}
			if err := json.Unmarshal([]byte(businessJSON.String), r.Business); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal business")
			}
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list llm results iterate")
}

func (s *SQLiteStore) SaveBusiness(ctx context.Context, b model.BusinessRecord) (*model.BusinessRecord, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	categoriesJSON, err := json.Marshal(b.Categories)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal categories")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO businesses (id, name, website, city, state_province, country, categories, confidence, source_url, notion_page_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (website) DO UPDATE SET
			name = excluded.name,
			city = excluded.city,
			state_province = excluded.state_province,
			country = excluded.country,
			categories = excluded.categories,
			confidence = excluded.confidence,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at`,
		b.ID, b.Name, b.Website, b.City, b.StateProvince, b.Country,
		string(categoriesJSON), b.Confidence, b.SourceURL, b.NotionPageID, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save business %s", b.Website)
	}
	saved, getErr := s.GetBusinessByWebsite(ctx, b.Website)
	if getErr != nil {
		return nil, getErr
	}
	if saved != nil {
		return saved, nil
	}
	return &b, nil
}

func scanSQLiteBusiness(row scannable) (*model.BusinessRecord, error) {
	var b model.BusinessRecord
	var categoriesJSON string
	err := row.Scan(&b.ID, &b.Name, &b.Website, &b.City, &b.StateProvince, &b.Country,
		&categoriesJSON, &b.Confidence, &b.SourceURL, &b.NotionPageID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(categoriesJSON), &b.Categories); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal categories")
	}
	return &b, nil
}

func (s *SQLiteStore) GetBusinessByWebsite(ctx context.Context, website string) (*model.BusinessRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+businessCols+` FROM businesses WHERE website = ?`, website)
	b, err := scanSQLiteBusiness(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get business %s", website)
	}
	return b, nil
}

func (s *SQLiteStore) ListBusinesses(ctx context.Context, limit, offset int) ([]model.BusinessRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+businessCols+` FROM businesses ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list businesses")
	}
	defer rows.Close()

	var list []model.BusinessRecord
	for rows.Next() {
		b, err := scanSQLiteBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan business")
		}
		list = append(list, *b)
	}
	return list, eris.Wrap(rows.Err(), "sqlite: list businesses iterate")
}

func (s *SQLiteStore) SetBusinessNotionPage(ctx context.Context, businessID, pageID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE businesses SET notion_page_id = ?, updated_at = ? WHERE id = ?`,
		pageID, time.Now().UTC(), businessID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set notion page %s", businessID)
	}
	return checkRowsAffected(res, "business", businessID)
}

func (s *SQLiteStore) AddJob(ctx context.Context, job model.Job) (*model.Job, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.JobStatusQueued
	}

	metadataJSON, err := json.Marshal(job.Metadata)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal job metadata")
	}
	var resultJSON sql.NullString
	if len(job.Result) > 0 {
		resultJSON = sql.NullString{String: string(job.Result), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, type, status, progress, poll_url, metadata, result, error, poll_failures, submitted_at, completed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Type), string(job.Status), job.Progress, job.PollURL,
		string(metadataJSON), resultJSON, job.Error, job.PollFailures,
		job.SubmittedAt, job.CompletedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}
	return &job, nil
}

func scanSQLiteJob(row scannable) (*model.Job, error) {
	var j model.Job
	var metadataJSON string
	var resultJSON sql.NullString
	err := row.Scan(&j.ID, &j.Type, &j.Status, &j.Progress, &j.PollURL,
		&metadataJSON, &resultJSON, &j.Error, &j.PollFailures,
		&j.SubmittedAt, &j.CompletedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &j.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal job metadata")
		}
	}
	if resultJSON.Valid {
		j.Result = json.RawMessage(resultJSON.String)
	}
	return &j, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobCols+` FROM jobs WHERE id = ?`, id)
	j, err := scanSQLiteJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	return j, nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job model.Job) error {
	metadataJSON, err := json.Marshal(job.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal job metadata")
	}
	var resultJSON sql.NullString
	if len(job.Result) > 0 {
		resultJSON = sql.NullString{String: string(job.Result), Valid: true}
	}
	job.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, progress = ?, poll_url = ?, metadata = ?, result = ?,
			error = ?, poll_failures = ?, completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(job.Status), job.Progress, job.PollURL, string(metadataJSON), resultJSON,
		job.Error, job.PollFailures, job.CompletedAt, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", job.ID)
	}
	return checkRowsAffected(res, "job", job.ID)
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete job %s", id)
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobCols + ` FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY submitted_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	return collectSQLiteJobs(rows)
}

func (s *SQLiteStore) ListActiveJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobCols+` FROM jobs WHERE status NOT IN (?, ?) ORDER BY submitted_at`,
		string(model.JobStatusCompleted), string(model.JobStatusFailed),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active jobs")
	}
	defer rows.Close()

	return collectSQLiteJobs(rows)
}

func collectSQLiteJobs(rows *sql.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}
