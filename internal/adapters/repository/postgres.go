package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// PostgreSQL error codes.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const defaultQueryTimeout = 5 * time.Second

// sqlExecutor is satisfied by both *sql.DB and *sql.Tx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenPostgres opens a lib/pq pool and verifies it within timeout.
func OpenPostgres(ctx context.Context, dsn string, timeout time.Duration, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}
	return db, nil
}

// PostgresStore is a Store backed by PostgreSQL through lib/pq.
type PostgresStore struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresStore wraps an open pool. The store owns db and closes it on Close.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, queryTimeout: defaultQueryTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates missing tables and indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// op bounds ctx by the query timeout unless the caller already set a
// deadline, and reports the latency of operation when done is called.
func (s *PostgresStore) op(ctx context.Context, operation string) (context.Context, func()) {
	start := time.Now()
	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {
		cancel()
		metrics.RecordRepositoryQueryLatency(operation, float64(time.Since(start).Microseconds())/1000)
	}
}

// mapPQError converts constraint violations into package errors. refs maps
// foreign key constraint names to the not-found error they imply.
func mapPQError(err error, refs map[string]error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return fmt.Errorf("%s: %w", pqErr.Constraint, ErrDuplicate)
	case pqForeignKeyViolation:
		if mapped, ok := refs[pqErr.Constraint]; ok {
			return mapped
		}
		return fmt.Errorf("%s: %w", pqErr.Constraint, ErrInvalidReference)
	}
	return err
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func (s *PostgresStore) CreateJogger(ctx context.Context, j model.Jogger) error {
	ctx, done := s.op(ctx, "create_jogger")
	defer done()
	_, err := s.db.ExecContext(ctx, `INSERT INTO joggers (email, name) VALUES ($1, $2)`, j.Email, j.Name)
	if err != nil {
		return fmt.Errorf("insert jogger: %w", mapPQError(err, nil))
	}
	return nil
}

func (s *PostgresStore) GetJogger(ctx context.Context, email string) (model.Jogger, error) {
	ctx, done := s.op(ctx, "get_jogger")
	defer done()
	var j model.Jogger
	err := s.db.QueryRowContext(ctx, `SELECT email, name FROM joggers WHERE email = $1`, email).
		Scan(&j.Email, &j.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Jogger{}, ErrJoggerNotFound
	}
	if err != nil {
		return model.Jogger{}, fmt.Errorf("select jogger: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) CreateRoute(ctx context.Context, r *model.Route) error {
	ctx, done := s.op(ctx, "create_route")
	defer done()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO routes (name, distance_km, avg_pace) VALUES ($1, $2, $3) RETURNING id`,
		r.Name, r.DistanceKm, r.AvgPace,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert route: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRoute(ctx context.Context, id int64) (model.Route, error) {
	ctx, done := s.op(ctx, "get_route")
	defer done()
	var r model.Route
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, distance_km, avg_pace FROM routes WHERE id = $1`, id,
	).Scan(&r.ID, &r.Name, &r.DistanceKm, &r.AvgPace)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Route{}, ErrRouteNotFound
	}
	if err != nil {
		return model.Route{}, fmt.Errorf("select route: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	ctx, done := s.op(ctx, "create_event")
	defer done()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO events (name, event_date, max_participants, route_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		e.Name, e.Date.UTC(), e.MaxParticipants, nullID(e.RouteID),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", mapPQError(err, nil))
	}
	return nil
}

const selectEvent = `SELECT id, name, event_date, max_participants, route_id FROM events WHERE id = $1`

func scanEvent(row *sql.Row) (model.Event, error) {
	var (
		e     model.Event
		route sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Name, &e.Date, &e.MaxParticipants, &route)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("select event: %w", err)
	}
	e.RouteID = route.Int64
	return e, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	ctx, done := s.op(ctx, "get_event")
	defer done()
	return scanEvent(s.db.QueryRowContext(ctx, selectEvent, id))
}

// LockEvent opens a transaction and takes a row lock on the event, so
// concurrent admissions to the same event queue behind each other.
func (s *PostgresStore) LockEvent(ctx context.Context, eventID int64, fn func(ctx context.Context, tx RegistrationTx) error) (err error) {
	ctx, done := s.op(ctx, "lock_event")
	defer done()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	event, err := scanEvent(tx.QueryRowContext(ctx, selectEvent+` FOR UPDATE`, eventID))
	if err != nil {
		return err
	}
	if err = fn(ctx, &pgRegistrationTx{tx: tx, event: event}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isRegistered(ctx context.Context, exec sqlExecutor, eventID int64, email string) (bool, error) {
	var ok bool
	err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND jogger_email = $2)`,
		eventID, email,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return ok, nil
}

func countRegistrations(ctx context.Context, exec sqlExecutor, eventID int64) (int, error) {
	var n int
	if err := exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) IsRegistered(ctx context.Context, eventID int64, email string) (bool, error) {
	ctx, done := s.op(ctx, "is_registered")
	defer done()
	return isRegistered(ctx, s.db, eventID, email)
}

func (s *PostgresStore) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	ctx, done := s.op(ctx, "count_registrations")
	defer done()
	return countRegistrations(ctx, s.db, eventID)
}

func (s *PostgresStore) Registrations(ctx context.Context, eventID int64) ([]model.Registration, error) {
	ctx, done := s.op(ctx, "list_registrations")
	defer done()
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, jogger_email, created_at FROM registrations
		 WHERE event_id = $1 ORDER BY created_at, jogger_email`, eventID)
	if err != nil {
		return nil, fmt.Errorf("select registrations: %w", err)
	}
	defer rows.Close()

	out := []model.Registration{}
	for rows.Next() {
		var r model.Registration
		if err := rows.Scan(&r.EventID, &r.JoggerEmail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type pgRegistrationTx struct {
	tx    *sql.Tx
	event model.Event
}

func (t *pgRegistrationTx) Event() model.Event { return t.event }

func (t *pgRegistrationTx) IsRegistered(ctx context.Context, email string) (bool, error) {
	return isRegistered(ctx, t.tx, t.event.ID, email)
}

func (t *pgRegistrationTx) Count(ctx context.Context) (int, error) {
	return countRegistrations(ctx, t.tx, t.event.ID)
}

func (t *pgRegistrationTx) Insert(ctx context.Context, email string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO registrations (event_id, jogger_email, created_at) VALUES ($1, $2, $3)`,
		t.event.ID, email, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", mapPQError(err, map[string]error{
			"registrations_jogger_email_fkey": ErrJoggerNotFound,
		}))
	}
	return nil
}

func (t *pgRegistrationTx) Delete(ctx context.Context, email string) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM registrations WHERE event_id = $1 AND jogger_email = $2`, t.event.ID, email)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return checkAffectedRows(res, ErrRegistrationNotFound)
}

var sessionRefs = map[string]error{
	"sessions_jogger_email_fkey": fmt.Errorf("session jogger: %w", ErrInvalidReference),
	"sessions_route_id_fkey":     fmt.Errorf("session route: %w", ErrInvalidReference),
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *model.Session) error {
	ctx, done := s.op(ctx, "create_session")
	defer done()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO sessions (jogger_email, start_at, end_at, distance_km, route_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		sess.JoggerEmail, sess.Start.UTC(), sess.End.UTC(), sess.DistanceKm, nullID(sess.RouteID),
	).Scan(&sess.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", mapPQError(err, sessionRefs))
	}
	return nil
}

const selectSession = `SELECT id, jogger_email, start_at, end_at, distance_km, route_id FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.Session, error) {
	var (
		sess  model.Session
		route sql.NullInt64
	)
	if err := row.Scan(&sess.ID, &sess.JoggerEmail, &sess.Start, &sess.End, &sess.DistanceKm, &route); err != nil {
		return model.Session{}, err
	}
	sess.RouteID = route.Int64
	return sess, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id int64) (model.Session, error) {
	ctx, done := s.op(ctx, "get_session")
	defer done()
	sess, err := scanSession(s.db.QueryRowContext(ctx, selectSession+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("select session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, sess model.Session) error {
	ctx, done := s.op(ctx, "update_session")
	defer done()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET jogger_email = $1, start_at = $2, end_at = $3, distance_km = $4, route_id = $5
		 WHERE id = $6`,
		sess.JoggerEmail, sess.Start.UTC(), sess.End.UTC(), sess.DistanceKm, nullID(sess.RouteID), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", mapPQError(err, sessionRefs))
	}
	return checkAffectedRows(res, ErrSessionNotFound)
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id int64) error {
	ctx, done := s.op(ctx, "delete_session")
	defer done()
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return checkAffectedRows(res, ErrSessionNotFound)
}

func (s *PostgresStore) SessionsByJogger(ctx context.Context, email string) ([]model.Session, error) {
	ctx, done := s.op(ctx, "sessions_by_jogger")
	defer done()
	rows, err := s.db.QueryContext(ctx, selectSession+` WHERE jogger_email = $1 ORDER BY start_at DESC, id`, email)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	out := []model.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LinkSession(ctx context.Context, eventID, sessionID int64) error {
	ctx, done := s.op(ctx, "link_session")
	defer done()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_sessions (event_id, session_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		eventID, sessionID,
	)
	if err != nil {
		return mapPQError(err, map[string]error{
			"event_sessions_event_id_fkey":   ErrEventNotFound,
			"event_sessions_session_id_fkey": ErrSessionNotFound,
		})
	}
	return nil
}

func (s *PostgresStore) UnlinkSession(ctx context.Context, eventID, sessionID int64) error {
	ctx, done := s.op(ctx, "unlink_session")
	defer done()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM event_sessions WHERE event_id = $1 AND session_id = $2`, eventID, sessionID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return checkAffectedRows(res, ErrLinkNotFound)
}

func (s *PostgresStore) LeaderboardRows(ctx context.Context, eventID int64) ([]model.LeaderboardRow, error) {
	ctx, done := s.op(ctx, "leaderboard_rows")
	defer done()
	rows, err := s.db.QueryContext(ctx,
		`SELECT es.event_id, s.id, s.jogger_email, j.name, s.distance_km, s.start_at, s.end_at
		 FROM event_sessions es
		 JOIN sessions s ON s.id = es.session_id
		 JOIN joggers j ON j.email = s.jogger_email
		 WHERE es.event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard rows: %w", err)
	}
	defer rows.Close()

	out := []model.LeaderboardRow{}
	for rows.Next() {
		var r model.LeaderboardRow
		if err := rows.Scan(&r.EventID, &r.SessionID, &r.JoggerEmail, &r.JoggerName,
			&r.DistanceKm, &r.Start, &r.End); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PerformerRows(ctx context.Context, eventIDs []int64) ([]model.PerformerRow, error) {
	ctx, done := s.op(ctx, "performer_rows")
	defer done()
	rows, err := s.db.QueryContext(ctx,
		`SELECT es.event_id, s.id, s.jogger_email, j.name, s.distance_km
		 FROM event_sessions es
		 JOIN sessions s ON s.id = es.session_id
		 JOIN joggers j ON j.email = s.jogger_email
		 WHERE es.event_id = ANY($1)`, pq.Array(eventIDs))
	if err != nil {
		return nil, fmt.Errorf("select performer rows: %w", err)
	}
	defer rows.Close()

	out := []model.PerformerRow{}
	for rows.Next() {
		var r model.PerformerRow
		if err := rows.Scan(&r.EventID, &r.SessionID, &r.JoggerEmail, &r.JoggerName, &r.DistanceKm); err != nil {
			return nil, fmt.Errorf("scan performer row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertReview(ctx context.Context, r *model.Review) error {
	ctx, done := s.op(ctx, "upsert_review")
	defer done()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO reviews (target, target_id, jogger_email, rating, comment)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (target, target_id, jogger_email)
		 DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment
		 RETURNING id, created_at`,
		string(r.Target), r.TargetID, r.JoggerEmail, r.Rating, r.Comment,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert review: %w", mapPQError(err, nil))
	}
	return nil
}

const selectReview = `SELECT id, target, target_id, jogger_email, rating, comment, created_at FROM reviews`

func scanReview(row rowScanner) (model.Review, error) {
	var (
		r      model.Review
		target string
	)
	if err := row.Scan(&r.ID, &target, &r.TargetID, &r.JoggerEmail, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
		return model.Review{}, err
	}
	r.Target = model.ReviewTarget(target)
	return r, nil
}

func (s *PostgresStore) GetReview(ctx context.Context, target model.ReviewTarget, id int64) (model.Review, error) {
	ctx, done := s.op(ctx, "get_review")
	defer done()
	r, err := scanReview(s.db.QueryRowContext(ctx, selectReview+` WHERE target = $1 AND id = $2`, string(target), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, ErrReviewNotFound
	}
	if err != nil {
		return model.Review{}, fmt.Errorf("select review: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) DeleteReview(ctx context.Context, target model.ReviewTarget, id int64) error {
	ctx, done := s.op(ctx, "delete_review")
	defer done()
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE target = $1 AND id = $2`, string(target), id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return checkAffectedRows(res, ErrReviewNotFound)
}

func (s *PostgresStore) Reviews(ctx context.Context, target model.ReviewTarget, targetID int64) ([]model.Review, error) {
	ctx, done := s.op(ctx, "list_reviews")
	defer done()
	rows, err := s.db.QueryContext(ctx,
		selectReview+` WHERE target = $1 AND target_id = $2 ORDER BY id`, string(target), targetID)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	ctx, done := s.op(ctx, "stats")
	defer done()
	var st Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM joggers),
		(SELECT COUNT(*) FROM events),
		(SELECT COUNT(*) FROM routes),
		(SELECT COUNT(*) FROM sessions),
		(SELECT COUNT(*) FROM registrations),
		(SELECT COUNT(*) FROM reviews)`,
	).Scan(&st.Joggers, &st.Events, &st.Routes, &st.Sessions, &st.Registrations, &st.Reviews)
	if err != nil {
		return Stats{}, fmt.Errorf("select stats: %w", err)
	}
	return st, nil
}
