package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"adhan-alarm/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore implements domain.TriggerStore and domain.PreferenceStore on a
// single SQLite file. This is a secondary adapter.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ domain.TriggerStore      = (*SQLiteStore)(nil)
	_ domain.PreferenceStore   = (*SQLiteStore)(nil)
	_ domain.PreferenceUpdater = (*SQLiteStore)(nil)
)

// OpenSQLite creates or opens the database at path and applies the schema.
//
// The connection is configured with:
//   - WAL mode so status reads never wait on a write
//   - a single open connection (SQLite allows one writer)
//   - a 5 second busy timeout
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	// busy_timeout in the DSN applies to every connection the pool opens.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put inserts or replaces the trigger with the same name.
func (s *SQLiteStore) Put(ctx context.Context, t domain.Trigger) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO triggers (name, fire_at_ms, sound, kind, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			fire_at_ms = excluded.fire_at_ms,
			sound      = excluded.sound,
			kind       = excluded.kind,
			updated_at = excluded.updated_at`,
		t.Name, t.FireAt.UnixMilli(), t.Sound, string(t.Kind), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert trigger %s: %w", t.Name, err)
	}
	return nil
}

// Remove deletes the trigger. Missing names are not an error.
func (s *SQLiteStore) Remove(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete trigger %s: %w", name, err)
	}
	return nil
}

// Get returns the trigger stored under name.
func (s *SQLiteStore) Get(ctx context.Context, name string) (domain.Trigger, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, fire_at_ms, sound, kind FROM triggers WHERE name = ?`, name)
	t, err := scanTrigger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trigger{}, false, nil
	}
	if err != nil {
		return domain.Trigger{}, false, fmt.Errorf("get trigger %s: %w", name, err)
	}
	return t, true, nil
}

// ListAll returns every stored trigger ordered by fire time.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Trigger, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, fire_at_ms, sound, kind FROM triggers ORDER BY fire_at_ms, name`)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	defer rows.Close()

	var out []domain.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrigger(sc scanner) (domain.Trigger, error) {
	var (
		t      domain.Trigger
		fireAt int64
		kind   string
	)
	if err := sc.Scan(&t.Name, &fireAt, &t.Sound, &kind); err != nil {
		return domain.Trigger{}, err
	}
	t.FireAt = time.UnixMilli(fireAt)
	t.Kind = domain.Kind(kind)
	return t, nil
}

// querier is satisfied by *sql.DB and by a *sql.Conn inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LoadPreferences returns stored preferences, or defaults before the first save.
func (s *SQLiteStore) LoadPreferences(ctx context.Context) (domain.Preferences, error) {
	return loadPreferences(ctx, s.db)
}

// SavePreferences clamps and stores p.
func (s *SQLiteStore) SavePreferences(ctx context.Context, p domain.Preferences) error {
	return savePreferences(ctx, s.db, p)
}

// UpdatePreferences runs fn inside a BEGIN IMMEDIATE transaction, so a CLI and
// a daemon sharing the file never interleave their read-modify-write.
func (s *SQLiteStore) UpdatePreferences(ctx context.Context, fn func(domain.Preferences) domain.Preferences) (domain.Preferences, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("update preferences: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return domain.Preferences{}, fmt.Errorf("begin preferences update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		}
	}()

	cur, err := loadPreferences(ctx, conn)
	if err != nil {
		return domain.Preferences{}, err
	}
	next := fn(cur).Normalize()
	if err := savePreferences(ctx, conn, next); err != nil {
		return domain.Preferences{}, err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return domain.Preferences{}, fmt.Errorf("commit preferences update: %w", err)
	}
	committed = true
	return next, nil
}

func loadPreferences(ctx context.Context, q querier) (domain.Preferences, error) {
	var (
		p             domain.Preferences
		smart, fadeIn int
	)
	err := q.QueryRowContext(ctx, `
		SELECT adhan_volume_percent, smart_dnd, fade_in, custom_sound, custom_sound_title
		FROM preferences WHERE id = 1`).
		Scan(&p.AdhanVolumePercent, &smart, &fadeIn, &p.CustomSound, &p.CustomSoundTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultPreferences(), nil
	}
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	p.SmartDND = smart != 0
	p.FadeIn = fadeIn != 0
	return p.Normalize(), nil
}

func savePreferences(ctx context.Context, q querier, p domain.Preferences) error {
	p = p.Normalize()
	_, err := q.ExecContext(ctx, `
		INSERT INTO preferences (id, adhan_volume_percent, smart_dnd, fade_in, custom_sound, custom_sound_title)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			adhan_volume_percent = excluded.adhan_volume_percent,
			smart_dnd            = excluded.smart_dnd,
			fade_in              = excluded.fade_in,
			custom_sound         = excluded.custom_sound,
			custom_sound_title   = excluded.custom_sound_title`,
		p.AdhanVolumePercent, boolInt(p.SmartDND), boolInt(p.FadeIn), p.CustomSound, p.CustomSoundTitle)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
