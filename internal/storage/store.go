// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/Elephant333/emojify/internal/model"
)

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 20

var (
	// ErrNotFound is returned when a generation id does not exist.
	ErrNotFound = errors.New("generation not found")

	// ErrBadIndex is returned for a variant index outside the generation.
	ErrBadIndex = errors.New("variant index out of range")

	// ErrInvalidRating is returned by ParseRating.
	ErrInvalidRating = errors.New("invalid rating")
)

// =============================================================================
// TYPES
// =============================================================================

// Rating is thumbs feedback on one variant. Up and down exclude each other.
type Rating int

const (
	RatingNone Rating = iota
	RatingUp
	RatingDown
)

// String returns "up", "down" or "none".
func (r Rating) String() string {
	switch r {
	case RatingUp:
		return "up"
	case RatingDown:
		return "down"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	parsed, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRating accepts up/down/none and the thumbs aliases good/bad/clear.
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "good", "+1", "👍":
		return RatingUp, nil
	case "down", "bad", "-1", "👎":
		return RatingDown, nil
	case "none", "clear", "":
		return RatingNone, nil
	}
	return RatingNone, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// Generation is one stored generation.
type Generation struct {
	ID        string          `json:"id"`
	Mode      model.Mode      `json:"mode"`
	Source    string          `json:"source"`
	Config    model.Config    `json:"config"`
	Model     string          `json:"model"`
	Provider  string          `json:"provider,omitempty"`
	Variants  []model.Variant `json:"variants"`
	CreatedAt time.Time       `json:"created_at"`

	// Feedback and Explanations are keyed by variant index. Get fills them;
	// List leaves them empty.
	Feedback     map[int]Rating `json:"feedback,omitempty"`
	Explanations map[int]string `json:"explanations,omitempty"`
}

// ListOptions filters List.
type ListOptions struct {
	// Mode restricts results to one mode when set.
	Mode *model.Mode

	// Limit caps the result count; zero means DefaultListLimit.
	Limit int
}

// Stats summarizes the history.
type Stats struct {
	Total        int            `json:"total"`
	ByMode       map[string]int `json:"by_mode"`
	ThumbsUp     int            `json:"thumbs_up"`
	ThumbsDown   int            `json:"thumbs_down"`
	Explanations int            `json:"explanations"`
}

// =============================================================================
// STORE
// =============================================================================

// Config configures Open.
type Config struct {
	// Path is the database file.
	Path string

	// MaxHistory prunes the oldest generations beyond this count after each
	// save. Zero keeps everything.
	MaxHistory int
}

// DefaultPath returns ~/.emojify/history.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".emojify", "history.db")
	}
	return filepath.Join(home, ".emojify", "history.db")
}

// Store is the SQLite history database. It is safe for concurrent use.
type Store struct {
	db         *sql.DB
	maxHistory int
	now        func() time.Time
}

// Open opens or creates the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, maxHistory: cfg.MaxHistory, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveGeneration stores g under a new uuid and returns the id. ID and
// CreatedAt on g are ignored.
func (s *Store) SaveGeneration(ctx context.Context, g Generation) (string, error) {
	cfg, err := json.Marshal(g.Config)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	variants, err := json.Marshal(g.Variants)
	if err != nil {
		return "", fmt.Errorf("failed to encode variants: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO generations (id, mode, source, config, model, provider, variants, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, g.Mode.String(), g.Source, string(cfg), g.Model, g.Provider, string(variants), s.now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to save generation: %w", err)
	}

	if s.maxHistory > 0 {
		if _, err := s.Prune(ctx, s.maxHistory); err != nil {
			return id, err
		}
	}
	return id, nil
}

// Get returns one generation with its feedback and explanations.
func (s *Store) Get(ctx context.Context, id string) (*Generation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, source, config, model, provider, variants, created_at
		 FROM generations WHERE id = ?`, id)
	g, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	g.Feedback = make(map[int]Rating)
	rows, err := s.db.QueryContext(ctx, `SELECT idx, rating FROM feedback WHERE generation_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	for rows.Next() {
		var idx int
		var rating string
		if err := rows.Scan(&idx, &rating); err != nil {
			rows.Close()
			return nil, err
		}
		r, _ := ParseRating(rating)
		g.Feedback[idx] = r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	g.Explanations = make(map[int]string)
	rows, err = s.db.QueryContext(ctx, `SELECT idx, text FROM explanations WHERE generation_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load explanations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var idx int
		var text string
		if err := rows.Scan(&idx, &text); err != nil {
			return nil, err
		}
		g.Explanations[idx] = text
	}
	return g, rows.Err()
}

// List returns generations newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Generation, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, mode, source, config, model, provider, variants, created_at FROM generations`
	args := []any{}
	if opts.Mode != nil {
		query += ` WHERE mode = ?`
		args = append(args, opts.Mode.String())
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// Delete removes one generation and its feedback.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Clear removes every generation and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM generations`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Prune keeps the newest max generations and returns how many were removed.
func (s *Store) Prune(ctx context.Context, max int) (int, error) {
	if max < 0 {
		max = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM generations WHERE id NOT IN (
		     SELECT id FROM generations ORDER BY created_at DESC, rowid DESC LIMIT ?
		 )`, max)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SetFeedback records rating for variant index of generation id. RatingNone
// clears it.
func (s *Store) SetFeedback(ctx context.Context, id string, index int, rating Rating) error {
	if err := s.checkIndex(ctx, id, index); err != nil {
		return err
	}

	var err error
	if rating == RatingNone {
		_, err = s.db.ExecContext(ctx, `DELETE FROM feedback WHERE generation_id = ? AND idx = ?`, id, index)
	} else {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO feedback (generation_id, idx, rating, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(generation_id, idx) DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at`,
			id, index, rating.String(), s.now().UnixNano())
	}
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// SaveExplanation stores text as the explanation of variant index,
// replacing any earlier one.
func (s *Store) SaveExplanation(ctx context.Context, id string, index int, text string) error {
	if err := s.checkIndex(ctx, id, index); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO explanations (generation_id, idx, text, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(generation_id, idx) DO UPDATE SET text = excluded.text, created_at = excluded.created_at`,
		id, index, text, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save explanation: %w", err)
	}
	return nil
}

// Stats counts generations per mode and feedback totals.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByMode: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT mode, COUNT(*) FROM generations GROUP BY mode`)
	if err != nil {
		return stats, fmt.Errorf("failed to load stats: %w", err)
	}
	for rows.Next() {
		var mode string
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByMode[mode] = n
		stats.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT
		     COALESCE(SUM(CASE WHEN rating = 'up' THEN 1 ELSE 0 END), 0),
		     COALESCE(SUM(CASE WHEN rating = 'down' THEN 1 ELSE 0 END), 0)
		 FROM feedback`).Scan(&stats.ThumbsUp, &stats.ThumbsDown)
	if err != nil {
		return stats, fmt.Errorf("failed to load feedback stats: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM explanations`).Scan(&stats.Explanations); err != nil {
		return stats, fmt.Errorf("failed to load explanation stats: %w", err)
	}
	return stats, nil
}

// checkIndex verifies that generation id exists and has a variant at index.
func (s *Store) checkIndex(ctx context.Context, id string, index int) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT variants FROM generations WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	var variants []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &variants); err != nil {
		return fmt.Errorf("corrupt variants for %s: %w", id, err)
	}
	if index < 0 || index >= len(variants) {
		return fmt.Errorf("%w: %d (have %d)", ErrBadIndex, index, len(variants))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row scanner) (*Generation, error) {
	var (
		g                   Generation
		mode, cfg, variants string
		createdAt           int64
	)
	if err := row.Scan(&g.ID, &mode, &g.Source, &cfg, &g.Model, &g.Provider, &variants, &createdAt); err != nil {
		return nil, err
	}

	m, err := model.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("corrupt mode for %s: %w", g.ID, err)
	}
	g.Mode = m
	if err := json.Unmarshal([]byte(cfg), &g.Config); err != nil {
		return nil, fmt.Errorf("corrupt config for %s: %w", g.ID, err)
	}
	if err := json.Unmarshal([]byte(variants), &g.Variants); err != nil {
		return nil, fmt.Errorf("corrupt variants for %s: %w", g.ID, err)
	}
	g.CreatedAt = time.Unix(0, createdAt)
	return &g, nil
}
