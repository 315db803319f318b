// Package filestore persists gallery samples as one JPEG per enrolled
// sample in a flat directory. Embeddings are not stored; they are
// recomputed from the sample images at load time.
package filestore

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// Store is a directory-backed gallery store. The first sample for a name is
// stored as <name>.jpg; additional samples get a uuid suffix so multi-sample
// enrollment never overwrites earlier captures.
type Store struct {
	dir       string
	extractor extractor.Extractor
}

// New creates a filestore rooted at dir, creating it if needed.
func New(dir string, ext extractor.Extractor) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create faces directory: %w", err)
	}
	return &Store{dir: dir, extractor: ext}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes one sample image for the identity. With replace set, existing
// samples for the name are deleted first.
func (s *Store) Save(ctx context.Context, name string, sample []byte, embedding []float32, replace bool) error {
	if replace {
		if err := s.Remove(ctx, name); err != nil {
			return err
		}
	}

	path := filepath.Join(s.dir, name+".jpg")
	if _, err := os.Stat(path); err == nil {
		// Name already has a primary sample; store this one alongside it.
		// "__" cannot appear in a normalized name, so the suffix is
		// unambiguous when the name is recovered from the filename.
		path = filepath.Join(s.dir, name+"__"+uuid.NewString()+".jpg")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sample, 0o644); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize sample: %w", err)
	}
	return nil
}

// LoadAll scans the directory and recomputes an embedding for every sample
// image. Samples where the extractor finds no usable face are skipped with
// a warning; a stale or corrupt file must not prevent startup.
func (s *Store) LoadAll(ctx context.Context) ([]gallery.Identity, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read faces directory: %w", err)
	}

	// Enrollment order matters: nearest-neighbor ties resolve to the
	// earliest enrolled identity, so reload in write order (mtime, then
	// name for stability), not lexicographic filename order.
	type sample struct {
		name    string
		modTime time.Time
	}
	samples := make([]sample, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jpg") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Printf("Warning: skipping sample %s: %v", e.Name(), err)
			continue
		}
		samples = append(samples, sample{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(samples, func(i, j int) bool {
		if !samples[i].modTime.Equal(samples[j].modTime) {
			return samples[i].modTime.Before(samples[j].modTime)
		}
		return samples[i].name < samples[j].name
	})

	names := make([]string, 0, len(samples))
	for _, s := range samples {
		names = append(names, s.name)
	}

	var identities []gallery.Identity
	for _, filename := range names {
		path := filepath.Join(s.dir, filename)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: skipping sample %s: %v", filename, err)
			continue
		}

		detection, err := extractor.DetectOne(ctx, s.extractor, data)
		if err != nil {
			log.Printf("Warning: skipping sample %s: %v", filename, err)
			continue
		}

		identities = append(identities, gallery.Identity{
			Name:      identityName(filename),
			Embedding: detection.Embedding,
		})
	}

	return identities, nil
}

// Remove deletes all sample files for the identity.
func (s *Store) Remove(ctx context.Context, name string) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read faces directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jpg") {
			continue
		}
		if identityName(e.Name()) != name {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("remove sample %s: %w", e.Name(), err)
		}
	}
	return nil
}

// identityName derives the identity name from a sample filename:
// "alice.jpg" and "alice__<uuid>.jpg" both map to "alice".
func identityName(filename string) string {
	base := strings.TrimSuffix(filename, ".jpg")
	if i := strings.Index(base, "__"); i >= 0 {
		base = base[:i]
	}
	return base
}
