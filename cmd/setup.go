package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/gallery/filestore"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// stack bundles the wired-up components a command works with.
type stack struct {
	cfg       *config.Config
	extractor extractor.Extractor
	gallery   *gallery.Gallery
	ledger    ledger.Ledger

	closers []func() error
}

// Close releases backend connections in reverse acquisition order.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			fmt.Printf("Warning: closing backend: %v\n", err)
		}
	}
}

// buildStack wires the extractor, gallery and ledger according to the
// configured backends. A PostgreSQL pool is created once and shared when
// both the gallery and the ledger use it.
func buildStack(ctx context.Context) (*stack, error) {
	cfg := config.Load()

	s := &stack{
		cfg:       cfg,
		extractor: extractor.NewClient(cfg.Extractor.URL, cfg.Extractor.Dim),
	}

	var pool *postgres.Pool
	getPool := func() (*postgres.Pool, error) {
		if pool != nil {
			return pool, nil
		}
		p, err := postgres.NewPool(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := p.Migrate(ctx); err != nil {
			p.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		pool = p
		s.closers = append(s.closers, p.Close)
		return pool, nil
	}

	var store gallery.Store
	switch cfg.Gallery.Backend {
	case "files":
		fileStore, err := filestore.New(cfg.Gallery.Dir, s.extractor)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open gallery store: %w", err)
		}
		store = fileStore
	case "postgres":
		p, err := getPool()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open gallery store: %w", err)
		}
		store = postgres.NewIdentityRepository(p)
	default:
		s.Close()
		return nil, fmt.Errorf("unknown gallery backend %q", cfg.Gallery.Backend)
	}

	s.gallery = gallery.New(cfg.Extractor.Dim, store)
	if err := s.gallery.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}

	switch cfg.Ledger.Backend {
	case "csv":
		l, err := ledger.NewCSV(cfg.Ledger.CSVPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open attendance table: %w", err)
		}
		s.ledger = l
	case "postgres":
		p, err := getPool()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open attendance backend: %w", err)
		}
		s.ledger = postgres.NewAttendanceLedger(p)
	case "mariadb":
		l, err := mariadb.New(cfg.MariaDB.DSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open attendance backend: %w", err)
		}
		s.closers = append(s.closers, l.Close)
		s.ledger = l
	default:
		s.Close()
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}

	return s, nil
}
