package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// IdentityRepository provides PostgreSQL-backed gallery storage. Unlike the
// filestore, embeddings are persisted directly (vector column), so loading
// does not recompute them from sample images.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Save persists one identity sample. With replace set, existing samples for
// the name are removed in the same transaction, so readers never observe a
// half-replaced identity.
func (r *IdentityRepository) Save(ctx context.Context, name string, sample []byte, embedding []float32, replace bool) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM identities WHERE name = $1", name); err != nil {
			return fmt.Errorf("delete existing samples: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identities (name, sample, embedding, dim)
		VALUES ($1, $2, $3, $4)
	`, name, sample, pgvector.NewVector(embedding), len(embedding))
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit identity: %w", err)
	}
	return nil
}

// LoadAll returns all identity samples in enrollment order.
func (r *IdentityRepository) LoadAll(ctx context.Context) ([]gallery.Identity, error) {
	rows, err := r.pool.Query(ctx, "SELECT name, embedding FROM identities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []gallery.Identity
	for rows.Next() {
		var id gallery.Identity
		var vec pgvector.Vector
		if err := rows.Scan(&id.Name, &vec); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		id.Embedding = vec.Slice()
		identities = append(identities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	return identities, nil
}

// Remove deletes all samples for the identity.
func (r *IdentityRepository) Remove(ctx context.Context, name string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM identities WHERE name = $1", name); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

// Nearest runs the nearest-neighbor query in SQL using the pgvector L2
// distance operator, implementing gallery.NearestFinder. Ordering by
// distance then id keeps ties deterministic on enrollment order, matching
// the in-memory scan.
func (r *IdentityRepository) Nearest(ctx context.Context, embedding []float32) (gallery.Match, bool, error) {
	var match gallery.Match
	err := r.pool.QueryRow(ctx, `
		SELECT name, embedding <-> $1 AS distance
		FROM identities
		ORDER BY distance, id
		LIMIT 1
	`, pgvector.NewVector(embedding)).Scan(&match.Name, &match.Distance)
	if errors.Is(err, sql.ErrNoRows) {
		return gallery.Match{}, false, nil
	}
	if err != nil {
		return gallery.Match{}, false, fmt.Errorf("query nearest identity: %w", err)
	}
	return match, true, nil
}
