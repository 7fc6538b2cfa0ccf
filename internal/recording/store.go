// Package recording stores landmark streams in SQLite so counter thresholds
// can be tuned offline against real movement. Rep counts are never stored.
package recording

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/claude/strongsight/internal/pose"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNoSessions is returned by Latest when the file holds no recordings.
var ErrNoSessions = errors.New("no recorded sessions")

// Session describes one recorded run.
type Session struct {
	ID        uuid.UUID
	Device    string
	StartedAt time.Time
	EndedAt   *time.Time
	Frames    int
}

// Frame is one stored pose result.
type Frame struct {
	Timestamp time.Duration
	Landmarks pose.LandmarkSet
	// Shown is how many display frames the result stayed current for.
	Shown int
}

// Store is an open recording database.
type Store struct {
	db *sql.DB
}

// RunMigrations applies all pending schema migrations to the SQLite file at path.
func RunMigrations(path string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Open migrates and opens the recording database at path, creating it if needed.
func Open(path string) (*Store, error) {
	if err := RunMigrations(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening recording db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging recording db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSession registers a new recording and returns a Recorder bound to it.
func (s *Store) StartSession(ctx context.Context, id uuid.UUID, device string, startedAt time.Time) (*Recorder, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, device, started_at) VALUES (?, ?, ?)`,
		id.String(), device, startedAt.UnixMicro(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting session %s: %w", id, err)
	}
	return &Recorder{store: s, id: id}, nil
}

// Sessions lists recordings, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.device, s.started_at, s.ended_at, COUNT(f.timestamp_us)
		FROM sessions s
		LEFT JOIN frames f ON f.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess    Session
			rawID   string
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&rawID, &sess.Device, &started, &ended, &sess.Frames); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if sess.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parsing session id %q: %w", rawID, err)
		}
		sess.StartedAt = time.UnixMicro(started).UTC()
		if ended.Valid {
			t := time.UnixMicro(ended.Int64).UTC()
			sess.EndedAt = &t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Latest returns the most recently started session.
func (s *Store) Latest(ctx context.Context) (Session, error) {
	sessions, err := s.Sessions(ctx)
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, ErrNoSessions
	}
	return sessions[0], nil
}

// Frames returns every frame of a session in timestamp order.
func (s *Store) Frames(ctx context.Context, id uuid.UUID) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp_us, landmarks, shown FROM frames WHERE session_id = ? ORDER BY timestamp_us`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer rows.Close()

	var out []Frame
	for rows.Next() {
		var (
			us  int64
			raw string
			f   Frame
		)
		if err := rows.Scan(&us, &raw, &f.Shown); err != nil {
			return nil, fmt.Errorf("scanning frame: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &f.Landmarks); err != nil {
			return nil, fmt.Errorf("decoding landmarks at %dus: %w", us, err)
		}
		f.Timestamp = time.Duration(us) * time.Microsecond
		out = append(out, f)
	}
	return out, rows.Err()
}

// Recorder appends frames to one session.
type Recorder struct {
	store *Store
	id    uuid.UUID
}

// ID returns the session id.
func (r *Recorder) ID() uuid.UUID {
	return r.id
}

// Record stores the landmark set of the result stamped ts. Call it once per
// displayed frame: a repeated timestamp means the same result was shown
// again, so the row's shown count goes up and its landmarks are replaced.
func (r *Recorder) Record(ctx context.Context, ts time.Duration, set pose.LandmarkSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding landmarks: %w", err)
	}
	_, err = r.store.db.ExecContext(ctx,
		`INSERT INTO frames (session_id, timestamp_us, landmarks, shown) VALUES (?, ?, ?, 1)
		 ON CONFLICT (session_id, timestamp_us)
		 DO UPDATE SET landmarks = excluded.landmarks, shown = frames.shown + 1`,
		r.id.String(), ts.Microseconds(), string(data),
	)
	if err != nil {
		return fmt.Errorf("inserting frame: %w", err)
	}
	return nil
}

// Close marks the session as ended. It does not close the Store.
func (r *Recorder) Close() error {
	_, err := r.store.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		time.Now().UnixMicro(), r.id.String(),
	)
	if err != nil {
		return fmt.Errorf("ending session %s: %w", r.id, err)
	}
	return nil
}
