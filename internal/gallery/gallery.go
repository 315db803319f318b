// Package gallery maintains the enrolled identities and answers
// nearest-neighbor queries against their embeddings.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/face"
)

// ErrInvalidEmbedding is returned when an embedding does not match the
// gallery dimension. The gallery is not mutated.
var ErrInvalidEmbedding = errors.New("invalid embedding dimension")

// ErrEmptyName is returned when enrolling with an empty identity name.
var ErrEmptyName = errors.New("identity name is empty")

// Identity is one enrolled (name, embedding) pair. Names are not unique:
// multi-sample enrollment stores several embeddings under the same name.
type Identity struct {
	Name      string
	Embedding []float32
}

// Match is the result of a nearest-neighbor query.
type Match struct {
	Name     string
	Distance float64
}

// NearestFinder is an optional Store capability: backends that can answer
// nearest-neighbor queries themselves (pgvector's distance operator) are
// queried directly instead of the in-memory scan, so samples written by
// other processes are visible immediately.
type NearestFinder interface {
	Nearest(ctx context.Context, embedding []float32) (Match, bool, error)
}

// Store persists identity samples. The filestore keeps one image per sample
// and recomputes embeddings at load time; the PostgreSQL store persists the
// embeddings themselves.
type Store interface {
	// Save persists one sample for the identity. With replace set, any
	// existing samples for the name are removed first.
	Save(ctx context.Context, name string, sample []byte, embedding []float32, replace bool) error
	// LoadAll returns all persisted identities in enrollment order.
	// Samples that cannot be decoded are skipped, not fatal.
	LoadAll(ctx context.Context) ([]Identity, error)
	// Remove deletes all samples for the identity.
	Remove(ctx context.Context, name string) error
}

// Gallery holds the in-memory enrolled identities. The identity list is
// ordered by enrollment; nearest-neighbor ties resolve to the lowest index.
type Gallery struct {
	dim   int
	store Store

	mu         sync.RWMutex
	identities []Identity
}

// New creates an empty gallery for embeddings of the given dimension.
// store may be nil for a purely in-memory gallery.
func New(dim int, store Store) *Gallery {
	return &Gallery{dim: dim, store: store}
}

// Dim returns the embedding dimension the gallery accepts.
func (g *Gallery) Dim() int {
	return g.dim
}

// Load rebuilds the in-memory identity list from the store.
func (g *Gallery) Load(ctx context.Context) error {
	if g.store == nil {
		return nil
	}

	identities, err := g.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load gallery: %w", err)
	}

	kept := identities[:0]
	for _, id := range identities {
		if len(id.Embedding) != g.dim {
			return fmt.Errorf("load gallery: identity %q: %w: got %d, want %d",
				id.Name, ErrInvalidEmbedding, len(id.Embedding), g.dim)
		}
		kept = append(kept, id)
	}

	g.mu.Lock()
	g.identities = kept
	g.mu.Unlock()
	return nil
}

// Enroll adds an identity sample to the gallery and persists it. With
// replace set, existing samples under the same name are dropped first;
// otherwise the sample is appended as an additional embedding for the name
// (multi-sample enrollment, where each sample votes for the identity).
func (g *Gallery) Enroll(ctx context.Context, name string, sample []byte, embedding []float32, replace bool) error {
	name = face.NormalizeName(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(embedding) != g.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidEmbedding, len(embedding), g.dim)
	}

	if g.store != nil {
		if err := g.store.Save(ctx, name, sample, embedding, replace); err != nil {
			return fmt.Errorf("persist identity %q: %w", name, err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if replace {
		kept := g.identities[:0]
		for _, id := range g.identities {
			if id.Name != name {
				kept = append(kept, id)
			}
		}
		g.identities = kept
	}
	g.identities = append(g.identities, Identity{Name: name, Embedding: embedding})
	return nil
}

// Nearest returns the enrolled identity closest to the query embedding by
// Euclidean distance. Stores that implement NearestFinder answer the query
// themselves; otherwise a brute-force linear pass scans in enrollment
// order. Either way ties resolve to the earliest enrolled identity.
// Returns false when the gallery is empty.
func (g *Gallery) Nearest(ctx context.Context, embedding []float32) (Match, bool) {
	if finder, ok := g.store.(NearestFinder); ok {
		match, found, err := finder.Nearest(ctx, embedding)
		if err == nil {
			return match, found
		}
		// Store-side query failed; the in-memory scan still answers.
		log.Printf("Warning: store nearest query failed, using in-memory scan: %v", err)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.identities) == 0 {
		return Match{}, false
	}

	best := 0
	bestDistance := face.EuclideanDistance(embedding, g.identities[0].Embedding)
	for i := 1; i < len(g.identities); i++ {
		if d := face.EuclideanDistance(embedding, g.identities[i].Embedding); d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	return Match{Name: g.identities[best].Name, Distance: bestDistance}, true
}

// Len returns the number of enrolled samples (not distinct names).
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.identities)
}

// Names returns the distinct enrolled names in enrollment order.
func (g *Gallery) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]struct{}, len(g.identities))
	names := make([]string, 0, len(g.identities))
	for _, id := range g.identities {
		if _, ok := seen[id.Name]; ok {
			continue
		}
		seen[id.Name] = struct{}{}
		names = append(names, id.Name)
	}
	return names
}
