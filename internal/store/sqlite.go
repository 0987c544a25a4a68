package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/venturefit/internal/assessment"
)

// SQLiteStore persists sessions, responses, results, matches and venture
// profiles. Results carry a unique session_id so a session can never own two.
type SQLiteStore struct {
	db  *sqlx.DB
	cfg Config
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id     TEXT PRIMARY KEY,
	applicant_id   TEXT NOT NULL DEFAULT '',
	applicant_name TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'pending',
	created_at     TEXT NOT NULL,
	started_at     TEXT NOT NULL DEFAULT '',
	completed_at   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS responses (
	session_id  TEXT NOT NULL,
	question_id TEXT NOT NULL,
	value       TEXT NOT NULL,
	PRIMARY KEY (session_id, question_id)
);

CREATE TABLE IF NOT EXISTS assessment_results (
	result_id             TEXT PRIMARY KEY,
	session_id            TEXT NOT NULL UNIQUE,
	primary_operator_type TEXT NOT NULL,
	confidence_level      TEXT NOT NULL,
	trap_level            TEXT NOT NULL,
	payload               TEXT NOT NULL,
	created_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS venture_matches (
	match_id      TEXT PRIMARY KEY,
	result_id     TEXT NOT NULL,
	venture_id    TEXT NOT NULL,
	position      INTEGER NOT NULL,
	overall_score INTEGER NOT NULL,
	payload       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_venture_matches_result ON venture_matches (result_id, position);

CREATE TABLE IF NOT EXISTS venture_profiles (
	venture_id TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 1,
	position   INTEGER NOT NULL,
	payload    TEXT NOT NULL
);
`

type sessionRow struct {
	SessionID     string `db:"session_id"`
	ApplicantID   string `db:"applicant_id"`
	ApplicantName string `db:"applicant_name"`
	Status        string `db:"status"`
	CreatedAt     string `db:"created_at"`
	StartedAt     string `db:"started_at"`
	CompletedAt   string `db:"completed_at"`
}

func (r sessionRow) session() assessment.Session {
	return assessment.Session{
		ID:            r.SessionID,
		ApplicantID:   r.ApplicantID,
		ApplicantName: r.ApplicantName,
		Status:        assessment.SessionStatus(r.Status),
		CreatedAt:     stringToTime(r.CreatedAt),
		StartedAt:     stringToTime(r.StartedAt),
		CompletedAt:   stringToTime(r.CompletedAt),
	}
}

type responseRow struct {
	QuestionID string `db:"question_id"`
	Value      string `db:"value"`
}

type payloadRow struct {
	Payload string `db:"payload"`
}

func NewSQLiteStore(dbPath string, cfg Config) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, cfg: cfg.withDefaults()}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, assessment.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// --- sessions ---

func (s *SQLiteStore) CreateSession(ctx context.Context, sess assessment.Session) (assessment.Session, error) {
	if sess.ID == "" {
		sess.ID = s.cfg.NewID()
	}
	if sess.Status == "" {
		sess.Status = assessment.SessionPending
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.cfg.Clock().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (session_id, applicant_id, applicant_name, status, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ApplicantID, sess.ApplicantName, string(sess.Status),
		timeToString(sess.CreatedAt), timeToString(sess.StartedAt), timeToString(sess.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return assessment.Session{}, fmt.Errorf("session %s: %w", sess.ID, ErrExists)
		}
		return assessment.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (assessment.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `SELECT session_id, applicant_id, applicant_name, status, created_at, started_at, completed_at
		FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return assessment.Session{}, notFound(err, "session %s", id)
	}
	return row.session(), nil
}

func (s *SQLiteStore) sessionExists(ctx context.Context, q sqlx.QueryerContext, id string) error {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(1) FROM sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, assessment.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) MarkStarted(ctx context.Context, id string) error {
	if err := s.sessionExists(ctx, s.db, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET status = ?, started_at = ? WHERE session_id = ? AND status = ?`,
		string(assessment.SessionInProgress), timeToString(s.cfg.Clock()), id, string(assessment.SessionPending))
	if err != nil {
		return fmt.Errorf("mark started: %w", err)
	}
	return nil
}

// MarkCompleted reports whether this call moved the session to completed.
func (s *SQLiteStore) MarkCompleted(ctx context.Context, id string) (bool, error) {
	if err := s.sessionExists(ctx, s.db, id); err != nil {
		return false, err
	}
	now := timeToString(s.cfg.Clock())
	res, err := s.db.ExecContext(ctx, `UPDATE sessions
		SET status = ?, completed_at = ?, started_at = CASE WHEN started_at = '' THEN ? ELSE started_at END
		WHERE session_id = ? AND status != ?`,
		string(assessment.SessionCompleted), now, now, id, string(assessment.SessionCompleted))
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	return n == 1, nil
}

// --- responses ---

func (s *SQLiteStore) PutResponses(ctx context.Context, sessionID string, rs []assessment.Response) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var status string
	if err := tx.GetContext(ctx, &status, `SELECT status FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return notFound(err, "session %s", sessionID)
	}
	if status == string(assessment.SessionCompleted) {
		return fmt.Errorf("session %s: %w", sessionID, assessment.ErrSessionCompleted)
	}
	for _, r := range rs {
		value, err := marshalJSON(r.Value)
		if err != nil {
			return fmt.Errorf("encode response %s: %w", r.QuestionID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO responses (session_id, question_id, value) VALUES (?, ?, ?)
			ON CONFLICT(session_id, question_id) DO UPDATE SET value = excluded.value`,
			sessionID, r.QuestionID, value); err != nil {
			return fmt.Errorf("upsert response %s: %w", r.QuestionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAllForSession(ctx context.Context, sessionID string) ([]assessment.Response, error) {
	var rows []responseRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT question_id, value FROM responses WHERE session_id = ? ORDER BY question_id`, sessionID); err != nil {
		return nil, fmt.Errorf("select responses: %w", err)
	}
	out := make([]assessment.Response, 0, len(rows))
	for _, row := range rows {
		r := assessment.Response{QuestionID: row.QuestionID}
		if err := unmarshalJSON(row.Value, &r.Value); err != nil {
			return nil, fmt.Errorf("decode response %s: %w", row.QuestionID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// --- results ---

func (s *SQLiteStore) UpsertBySession(ctx context.Context, sessionID string, result assessment.AssessmentResult) (assessment.AssessmentResult, bool, error) {
	if result.ID == "" {
		result.ID = s.cfg.NewID()
	}
	result.SessionID = sessionID
	if result.CreatedAt.IsZero() {
		result.CreatedAt = s.cfg.Clock().UTC()
	}
	payload, err := marshalJSON(result)
	if err != nil {
		return assessment.AssessmentResult{}, false, fmt.Errorf("encode result: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO assessment_results
		(result_id, session_id, primary_operator_type, confidence_level, trap_level, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		result.ID, sessionID, string(result.PrimaryOperatorType), string(result.ConfidenceLevel),
		string(result.TrapAnalysis.Level), payload, timeToString(result.CreatedAt))
	if err != nil {
		return assessment.AssessmentResult{}, false, fmt.Errorf("insert result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return result, true, nil
	}
	existing, err := s.GetBySession(ctx, sessionID)
	if err != nil {
		return assessment.AssessmentResult{}, false, err
	}
	return existing, false, nil
}

func (s *SQLiteStore) decodeResult(payload string) (assessment.AssessmentResult, error) {
	var r assessment.AssessmentResult
	if err := unmarshalJSON(payload, &r); err != nil {
		return assessment.AssessmentResult{}, fmt.Errorf("decode result: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) GetBySession(ctx context.Context, sessionID string) (assessment.AssessmentResult, error) {
	var row payloadRow
	if err := s.db.GetContext(ctx, &row, `SELECT payload FROM assessment_results WHERE session_id = ?`, sessionID); err != nil {
		return assessment.AssessmentResult{}, notFound(err, "result for session %s", sessionID)
	}
	return s.decodeResult(row.Payload)
}

func (s *SQLiteStore) GetResult(ctx context.Context, id string) (assessment.AssessmentResult, error) {
	var row payloadRow
	if err := s.db.GetContext(ctx, &row, `SELECT payload FROM assessment_results WHERE result_id = ?`, id); err != nil {
		return assessment.AssessmentResult{}, notFound(err, "result %s", id)
	}
	return s.decodeResult(row.Payload)
}

func (s *SQLiteStore) ListResults(ctx context.Context) ([]assessment.AssessmentResult, error) {
	var rows []payloadRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT payload FROM assessment_results ORDER BY created_at, result_id`); err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	out := make([]assessment.AssessmentResult, 0, len(rows))
	for _, row := range rows {
		r, err := s.decodeResult(row.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// --- matches ---

// ReplaceAllForResult deletes and re-inserts a result's matches in one
// transaction.
func (s *SQLiteStore) ReplaceAllForResult(ctx context.Context, resultID string, matches []assessment.VentureMatch) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(1) FROM assessment_results WHERE result_id = ?`, resultID); err != nil {
		return fmt.Errorf("check result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("result %s: %w", resultID, assessment.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM venture_matches WHERE result_id = ?`, resultID); err != nil {
		return fmt.Errorf("delete matches: %w", err)
	}
	for i, m := range matches {
		m.ResultID = resultID
		if m.ID == "" {
			m.ID = s.cfg.NewID()
		}
		payload, err := marshalJSON(m)
		if err != nil {
			return fmt.Errorf("encode match: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO venture_matches (match_id, result_id, venture_id, position, overall_score, payload)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, resultID, m.VentureID, i, m.OverallScore, payload); err != nil {
			return fmt.Errorf("insert match %s: %w", m.VentureID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListForResult(ctx context.Context, resultID string) ([]assessment.VentureMatch, error) {
	var rows []payloadRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT payload FROM venture_matches WHERE result_id = ? ORDER BY position`, resultID); err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	out := make([]assessment.VentureMatch, 0, len(rows))
	for _, row := range rows {
		var m assessment.VentureMatch
		if err := unmarshalJSON(row.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode match: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// --- venture profiles ---

func (s *SQLiteStore) UpsertVentureProfile(ctx context.Context, v assessment.VentureProfile) error {
	if v.ID == "" {
		return fmt.Errorf("venture profile id is required")
	}
	payload, err := marshalJSON(v)
	if err != nil {
		return fmt.Errorf("encode venture profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO venture_profiles (venture_id, name, active, position, payload)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM venture_profiles), ?)
		ON CONFLICT(venture_id) DO UPDATE SET name = excluded.name, active = excluded.active, payload = excluded.payload`,
		v.ID, v.Name, boolToInt(v.Active), payload)
	if err != nil {
		return fmt.Errorf("upsert venture profile %s: %w", v.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListVentureProfiles(ctx context.Context, activeOnly bool) ([]assessment.VentureProfile, error) {
	query := `SELECT payload FROM venture_profiles ORDER BY position`
	if activeOnly {
		query = `SELECT payload FROM venture_profiles WHERE active = 1 ORDER BY position`
	}
	var rows []payloadRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select venture profiles: %w", err)
	}
	out := make([]assessment.VentureProfile, 0, len(rows))
	for _, row := range rows {
		var v assessment.VentureProfile
		if err := unmarshalJSON(row.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode venture profile: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *SQLiteStore) ListActiveVentures(ctx context.Context) ([]assessment.VentureProfile, error) {
	return s.ListVentureProfiles(ctx, true)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
