package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/azar84/saas-marketing-360-sub004/internal/db"
	"github.com/azar84/saas-marketing-360-sub004/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS search_sessions (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	queries            JSONB NOT NULL,
	industry           TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	city               TEXT NOT NULL DEFAULT '',
	state_province     TEXT NOT NULL DEFAULT '',
	country            TEXT NOT NULL DEFAULT '',
	results_limit      INTEGER NOT NULL DEFAULT 10,
	filters            JSONB NOT NULL DEFAULT '{}',
	total_results      INTEGER NOT NULL DEFAULT 0,
	successful_queries INTEGER NOT NULL DEFAULT 0,
	search_time_secs   DOUBLE PRECISION NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'pending',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_results (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	session_id   TEXT NOT NULL REFERENCES search_sessions(id),
	position     INTEGER NOT NULL DEFAULT 0,
	title        TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	display_url  TEXT NOT NULL DEFAULT '',
	snippet      TEXT NOT NULL DEFAULT '',
	query        TEXT NOT NULL DEFAULT '',
	is_processed BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (session_id, url)
);

CREATE TABLE IF NOT EXISTS llm_processing_sessions (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	search_session_id  TEXT,
	total_results      INTEGER NOT NULL DEFAULT 0,
	accepted           INTEGER NOT NULL DEFAULT 0,
	rejected           INTEGER NOT NULL DEFAULT 0,
	errors             INTEGER NOT NULL DEFAULT 0,
	extraction_quality DOUBLE PRECISION NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'processing',
	started_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at           TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS llm_processing_results (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	search_result_id     TEXT NOT NULL,
	llm_session_id       TEXT NOT NULL REFERENCES llm_processing_sessions(id),
	status               TEXT NOT NULL,
	confidence           DOUBLE PRECISION NOT NULL DEFAULT 0,
	business             JSONB,
	rejection_reason     TEXT NOT NULL DEFAULT '',
	error_message        TEXT NOT NULL DEFAULT '',
	prompt               TEXT NOT NULL DEFAULT '',
	raw_response         TEXT NOT NULL DEFAULT '',
	processing_time_secs DOUBLE PRECISION NOT NULL DEFAULT 0,
	business_id          TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (search_result_id, llm_session_id)
);

CREATE TABLE IF NOT EXISTS businesses (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name           TEXT NOT NULL,
	website        TEXT NOT NULL UNIQUE,
	city           TEXT NOT NULL DEFAULT '',
	state_province TEXT NOT NULL DEFAULT '',
	country        TEXT NOT NULL DEFAULT '',
	categories     JSONB NOT NULL DEFAULT '[]',
	confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
	source_url     TEXT NOT NULL DEFAULT '',
	notion_page_id TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	progress      INTEGER NOT NULL DEFAULT 0,
	poll_url      TEXT NOT NULL DEFAULT '',
	metadata      JSONB NOT NULL DEFAULT '{}',
	result        JSONB,
	error         TEXT NOT NULL DEFAULT '',
	poll_failures INTEGER NOT NULL DEFAULT 0,
	submitted_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at  TIMESTAMPTZ,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_search_sessions_status ON search_sessions(status);
CREATE INDEX IF NOT EXISTS idx_search_sessions_industry ON search_sessions(industry);
CREATE INDEX IF NOT EXISTS idx_search_results_session ON search_results(session_id);
CREATE INDEX IF NOT EXISTS idx_llm_results_session ON llm_processing_results(llm_session_id);
CREATE INDEX IF NOT EXISTS idx_businesses_website ON businesses(website);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSearchSession(ctx context.Context, sess model.SearchSession) (*model.SearchSession, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal queries")
	}
	filtersJSON, err := json.Marshal(sess.Filters)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal filters")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO search_sessions (id, queries, industry, location, city, state_province, country, results_limit, filters, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sess.ID, queriesJSON, sess.Industry, sess.Location, sess.City, sess.StateProvince,
		sess.Country, sess.ResultsLimit, filtersJSON, string(sess.Status), sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert search session")
	}
	return &sess, nil
}

const searchSessionCols = `id, queries, industry, location, city, state_province, country, results_limit, filters, total_results, successful_queries, search_time_secs, status, created_at, updated_at`

func scanSearchSession(row pgx.Row) (*model.SearchSession, error) {
	var sess model.SearchSession
	var queriesJSON, filtersJSON []byte
	err := row.Scan(&sess.ID, &queriesJSON, &sess.Industry, &sess.Location, &sess.City,
		&sess.StateProvince, &sess.Country, &sess.ResultsLimit, &filtersJSON,
		&sess.TotalResults, &sess.SuccessfulQueries, &sess.SearchTimeSecs,
		&sess.Status, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(queriesJSON, &sess.Queries); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal queries")
	}
	if err := json.Unmarshal(filtersJSON, &sess.Filters); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal filters")
	}
	return &sess, nil
}

func (s *PostgresStore) GetSearchSession(ctx context.Context, id string) (*model.SearchSession, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+searchSessionCols+` FROM search_sessions WHERE id = $1`, id)
	sess, err := scanSearchSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get search session %s", id)
	}
	return sess, nil
}

func (s *PostgresStore) ListSearchSessions(ctx context.Context, filter SessionFilter) ([]model.SearchSession, error) {
	query := `SELECT ` + searchSessionCols + ` FROM search_sessions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Industry != "" {
		query += fmt.Sprintf(` AND industry = $%d`, argIdx)
		args = append(args, filter.Industry)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list search sessions")
	}
	defer rows.Close()

	var sessions []model.SearchSession
	for rows.Next() {
		sess, err := scanSearchSession(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan search session")
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list search sessions iterate")
}

var searchResultColumns = []string{
	"id", "session_id", "position", "title", "url", "display_url", "snippet", "query", "is_processed", "created_at",
}

func (s *PostgresStore) AddSearchResults(ctx context.Context, sessionID string, results []model.SearchResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(results))
	for _, r := range results {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{
			id, sessionID, r.Position, r.Title, r.URL, r.DisplayURL, r.Snippet, r.Query, false, now,
		})
	}

	stored, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "search_results",
		Columns:      searchResultColumns,
		ConflictKeys: []string{"session_id", "url"},
		DoNothing:    true,
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: add search results %s", sessionID)
	}
	return int(stored), nil
}

func (s *PostgresStore) CompleteSearchSession(ctx context.Context, sessionID string, status model.SessionStatus, successfulQueries int, searchTimeSecs float64) error {
	// total_results is recomputed from stored rows so the count stays
	// honest even when duplicate URLs were skipped on insert.
	tag, err := s.pool.Exec(ctx,
		`UPDATE search_sessions SET
			total_results = (SELECT COUNT(*) FROM search_results WHERE session_id = $1),
			successful_queries = $2,
			search_time_secs = $3,
			status = $4,
			updated_at = $5
		 WHERE id = $1`,
		sessionID, successfulQueries, searchTimeSecs, string(status), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete search session %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("search session not found: %s", sessionID)
	}
	return nil
}

func (s *PostgresStore) ListSearchResults(ctx context.Context, sessionID string) ([]model.SearchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, position, title, url, display_url, snippet, query, is_processed, created_at
		 FROM search_results WHERE session_id = $1 ORDER BY position, created_at`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list search results %s", sessionID)
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Position, &r.Title, &r.URL,
			&r.DisplayURL, &r.Snippet, &r.Query, &r.IsProcessed, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list search results iterate")
}

func (s *PostgresStore) MarkResultProcessed(ctx context.Context, resultID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE search_results SET is_processed = true WHERE id = $1`, resultID)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark result processed %s", resultID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("search result not found: %s", resultID)
	}
	return nil
}

func (s *PostgresStore) CreateLLMSession(ctx context.Context, searchSessionID string, totalResults int) (*model.LLMProcessingSession, error) {
	sess := model.LLMProcessingSession{
		ID:              uuid.New().String(),
		SearchSessionID: searchSessionID,
		TotalResults:    totalResults,
		Status:          model.SessionStatusProcessing,
		StartedAt:       time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO llm_processing_sessions (id, search_session_id, total_results, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		sess.ID, sess.SearchSessionID, sess.TotalResults, string(sess.Status), sess.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert llm session")
	}
	return &sess, nil
}

func (s *PostgresStore) RecordLLMResult(ctx context.Context, res model.LLMProcessingResult) (*model.LLMProcessingResult, error) {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	res.CreatedAt = time.Now().UTC()

	var businessJSON []byte
	if res.Business != nil {
		var err error
		businessJSON, err = json.Marshal(res.Business)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal business")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO llm_processing_results
			(id, search_result_id, llm_session_id, status, confidence, business, rejection_reason, error_message, prompt, raw_response, processing_time_secs, business_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (search_result_id, llm_session_id) DO NOTHING`,
		res.ID, res.SearchResultID, res.LLMSessionID, string(res.Status), res.Confidence,
		businessJSON, res.RejectionReason, res.ErrorMessage, res.Prompt, res.RawResponse,
		res.ProcessingTimeSecs, res.BusinessID, res.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert llm result")
	}
	return &res, nil
}

func (s *PostgresStore) CompleteLLMSession(ctx context.Context, id string, accepted, rejected, errs int, quality float64, status model.SessionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE llm_processing_sessions SET accepted = $1, rejected = $2, errors = $3,
			extraction_quality = $4, status = $5, ended_at = $6
		 WHERE id = $7`,
		accepted, rejected, errs, quality, string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete llm session %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("llm session not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) GetLLMSession(ctx context.Context, id string) (*model.LLMProcessingSession, error) {
	var sess model.LLMProcessingSession
	var searchSessionID *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, search_session_id, total_results, accepted, rejected, errors, extraction_quality, status, started_at, ended_at
		 FROM llm_processing_sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &searchSessionID, &sess.TotalResults, &sess.Accepted, &sess.Rejected,
		&sess.Errors, &sess.ExtractionQuality, &sess.Status, &sess.StartedAt, &sess.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get llm session %s", id)
	}
	if searchSessionID != nil {
		sess.SearchSessionID = *searchSessionID
	}
	return &sess, nil
}

func (s *PostgresStore) ListLLMSessions(ctx context.Context, searchSessionID string) ([]model.LLMProcessingSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, search_session_id, total_results, accepted, rejected, errors, extraction_quality, status, started_at, ended_at
		 FROM llm_processing_sessions WHERE search_session_id = $1 ORDER BY started_at`,
		searchSessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list llm sessions %s", searchSessionID)
	}
	defer rows.Close()

	var sessions []model.LLMProcessingSession
	for rows.Next() {
		var sess model.LLMProcessingSession
		var parentID *string
		if err := rows.Scan(&sess.ID, &parentID, &sess.TotalResults, &sess.Accepted, &sess.Rejected,
			&sess.Errors, &sess.ExtractionQuality, &sess.Status, &sess.StartedAt, &sess.EndedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan llm session")
		}
		if parentID != nil {
			sess.SearchSessionID = *parentID
		}
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list llm sessions iterate")
}

func (s *PostgresStore) ListLLMResults(ctx context.Context, llmSessionID string) ([]model.LLMProcessingResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, search_result_id, llm_session_id, status, confidence, business, rejection_reason, error_message, prompt, raw_response, processing_time_secs, business_id, created_at
		 FROM llm_processing_results WHERE llm_session_id = $1 ORDER BY created_at`,
		llmSessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list llm results %s", llmSessionID)
	}
	defer rows.Close()

	var results []model.LLMProcessingResult
	for rows.Next() {
		var r model.LLMProcessingResult
		var businessJSON []byte
		if err := rows.Scan(&r.ID, &r.SearchResultID, &r.LLMSessionID, &r.Status, &r.Confidence,
			&businessJSON, &r.RejectionReason, &r.ErrorMessage, &r.Prompt, &r.RawResponse,
			&r.ProcessingTimeSecs, &r.BusinessID, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan llm result")
		}
		if len(businessJSON) > 0 {
			r.Business = &model.Business{}
			if err := json.Unmarshal(businessJSON, r.Business); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal business")
			}
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list llm results iterate")
}

func (s *PostgresStore) SaveBusiness(ctx context.Context, b model.BusinessRecord) (*model.BusinessRecord, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal categories")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO businesses (id, name, website, city, state_province, country, categories, confidence, source_url, notion_page_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (website) DO UPDATE SET
			name = EXCLUDED.name,
			city = EXCLUDED.city,
			state_province = EXCLUDED.state_province,
			country = EXCLUDED.country,
			categories = EXCLUDED.categories,
			confidence = EXCLUDED.confidence,
			source_url = EXCLUDED.source_url,
			updated_at = EXCLUDED.updated_at`,
		b.ID, b.Name, b.Website, b.City, b.StateProvince, b.Country,
		categoriesJSON, b.Confidence, b.SourceURL, b.NotionPageID, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save business %s", b.Website)
	}
	// On upsert the existing row keeps its original id.
	saved, getErr := s.GetBusinessByWebsite(ctx, b.Website)
	if getErr != nil {
		return nil, getErr
	}
	if saved != nil {
		return saved, nil
	}
	return &b, nil
}

func scanBusiness(row pgx.Row) (*model.BusinessRecord, error) {
	var b model.BusinessRecord
	var categoriesJSON []byte
	err := row.Scan(&b.ID, &b.Name, &b.Website, &b.City, &b.StateProvince, &b.Country,
		&categoriesJSON, &b.Confidence, &b.SourceURL, &b.NotionPageID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(categoriesJSON, &b.Categories); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal categories")
	}
	return &b, nil
}

const businessCols = `id, name, website, city, state_province, country, categories, confidence, source_url, notion_page_id, created_at, updated_at`

func (s *PostgresStore) GetBusinessByWebsite(ctx context.Context, website string) (*model.BusinessRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+businessCols+` FROM businesses WHERE website = $1`, website)
	b, err := scanBusiness(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get business %s", website)
	}
	return b, nil
}

func (s *PostgresStore) ListBusinesses(ctx context.Context, limit, offset int) ([]model.BusinessRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+businessCols+` FROM businesses ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list businesses")
	}
	defer rows.Close()

	var list []model.BusinessRecord
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		list = append(list, *b)
	}
	return list, eris.Wrap(rows.Err(), "postgres: list businesses iterate")
}

func (s *PostgresStore) SetBusinessNotionPage(ctx context.Context, businessID, pageID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE businesses SET notion_page_id = $1, updated_at = $2 WHERE id = $3`,
		pageID, time.Now().UTC(), businessID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set notion page %s", businessID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("business not found: %s", businessID)
	}
	return nil
}

func (s *PostgresStore) AddJob(ctx context.Context, job model.Job) (*model.Job, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal job metadata")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, type, status, progress, poll_url, metadata, result, error, poll_failures, submitted_at, completed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, string(job.Type), string(job.Status), job.Progress, job.PollURL,
		metadataJSON, []byte(job.Result), job.Error, job.PollFailures,
		job.SubmittedAt, job.CompletedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}
	return &job, nil
}

const jobCols = `id, type, status, progress, poll_url, metadata, result, error, poll_failures, submitted_at, completed_at, updated_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var metadataJSON, resultJSON []byte
	err := row.Scan(&j.ID, &j.Type, &j.Status, &j.Progress, &j.PollURL,
		&metadataJSON, &resultJSON, &j.Error, &j.PollFailures,
		&j.SubmittedAt, &j.CompletedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &j.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal job metadata")
		}
	}
	if len(resultJSON) > 0 {
		j.Result = json.RawMessage(resultJSON)
	}
	return &j, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobCols+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	return j, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job model.Job) error {
	metadataJSON, err := json.Marshal(job.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal job metadata")
	}
	job.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, progress = $2, poll_url = $3, metadata = $4, result = $5,
			error = $6, poll_failures = $7, completed_at = $8, updated_at = $9
		 WHERE id = $10`,
		string(job.Status), job.Progress, job.PollURL, metadataJSON, []byte(job.Result),
		job.Error, job.PollFailures, job.CompletedAt, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", job.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", job.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete job %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobCols + ` FROM jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(` AND type = $%d`, argIdx)
		args = append(args, string(filter.Type))
		argIdx++
	}
	query += ` ORDER BY submitted_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	return collectJobs(rows)
}

func (s *PostgresStore) ListActiveJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobCols+` FROM jobs WHERE status NOT IN ($1, $2) ORDER BY submitted_at`,
		string(model.JobStatusCompleted), string(model.JobStatusFailed),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active jobs")
	}
	defer rows.Close()

	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}
