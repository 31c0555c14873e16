// Package store persists finalized recipes in a local SQLite database.
// The editing core never reads from it; only the save flow and the recipe
// list page touch storage.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mealdraft/mealdraft/internal/recipe"
)

// ErrNotFound is returned when a recipe id does not exist.
var ErrNotFound = errors.New("recipe not found")

// Saved is a persisted recipe with its storage identity.
type Saved struct {
	ID        int64
	Recipe    recipe.Recipe
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps the SQLite database holding saved recipes.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS recipes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	ingredients  TEXT NOT NULL,
	instructions TEXT NOT NULL,
	makes_min    INTEGER,
	makes_max    INTEGER,
	makes_unit   TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);`

// Open opens (creating if needed) the recipe database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL enables one writer + many readers; busy_timeout avoids
	// "database is locked" flakiness under concurrent requests.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts a validated recipe and returns its new id.
func (s *Store) Save(ctx context.Context, r *recipe.Recipe) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return 0, err
	}
	instructions, err := json.Marshal(r.Instructions)
	if err != nil {
		return 0, err
	}

	// Timestamps are stored as RFC 3339 text; the driver round-trips
	// strings, not time.Time.
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recipes (name, ingredients, instructions, makes_min, makes_max, makes_unit, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, string(ingredients), string(instructions),
		nullableInt(r.MakesMin), nullableInt(r.MakesMax), r.MakesUnit, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert recipe: %w", err)
	}
	return res.LastInsertId()
}

// Get loads one saved recipe by id.
func (s *Store) Get(ctx context.Context, id int64) (*Saved, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, ingredients, instructions, makes_min, makes_max, makes_unit, created_at, updated_at
		 FROM recipes WHERE id = ?`, id)
	saved, err := scanSaved(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return saved, err
}

// List returns all saved recipes, newest first.
func (s *Store) List(ctx context.Context) ([]*Saved, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, ingredients, instructions, makes_min, makes_max, makes_unit, created_at, updated_at
		 FROM recipes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var out []*Saved
	for rows.Next() {
		saved, err := scanSaved(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, rows.Err()
}

// Delete removes a saved recipe. Deleting a missing id returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSaved(row rowScanner) (*Saved, error) {
	var (
		saved                Saved
		ingredients          string
		instructions         string
		makesMin, makesMax   sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(&saved.ID, &saved.Recipe.Name, &ingredients, &instructions,
		&makesMin, &makesMax, &saved.Recipe.MakesUnit, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ingredients), &saved.Recipe.Ingredients); err != nil {
		return nil, fmt.Errorf("decode ingredients: %w", err)
	}
	if err := json.Unmarshal([]byte(instructions), &saved.Recipe.Instructions); err != nil {
		return nil, fmt.Errorf("decode instructions: %w", err)
	}
	if makesMin.Valid {
		v := int(makesMin.Int64)
		saved.Recipe.MakesMin = &v
	}
	if makesMax.Valid {
		v := int(makesMax.Int64)
		saved.Recipe.MakesMax = &v
	}
	if saved.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if saved.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	return &saved, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
