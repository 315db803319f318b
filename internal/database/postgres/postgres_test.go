//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool)

	embedding := make([]float32, 128)
	embedding[0] = 1

	t.Run("SaveAndLoad", func(t *testing.T) {
		if err := repo.Save(ctx, "alice", []byte("sample"), embedding, false); err != nil {
			t.Fatalf("Failed to save identity: %v", err)
		}

		identities, err := repo.LoadAll(ctx)
		if err != nil {
			t.Fatalf("Failed to load identities: %v", err)
		}
		if len(identities) != 1 {
			t.Fatalf("Expected 1 identity, got %d", len(identities))
		}
		if identities[0].Name != "alice" {
			t.Errorf("Expected name 'alice', got '%s'", identities[0].Name)
		}
		if len(identities[0].Embedding) != 128 {
			t.Errorf("Expected 128-dim embedding, got %d", len(identities[0].Embedding))
		}
		if identities[0].Embedding[0] != 1 {
			t.Errorf("Embedding round-trip mismatch: %v", identities[0].Embedding[0])
		}
	})

	t.Run("MultiSampleAppend", func(t *testing.T) {
		second := make([]float32, 128)
		second[1] = 1
		if err := repo.Save(ctx, "alice", nil, second, false); err != nil {
			t.Fatalf("Failed to save second sample: %v", err)
		}

		identities, err := repo.LoadAll(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(identities) != 2 {
			t.Errorf("Expected 2 samples, got %d", len(identities))
		}
	})

	t.Run("Nearest", func(t *testing.T) {
		bobEmb := make([]float32, 128)
		bobEmb[0] = 10
		if err := repo.Save(ctx, "bob", nil, bobEmb, false); err != nil {
			t.Fatal(err)
		}

		match, ok, err := repo.Nearest(ctx, embedding)
		if err != nil {
			t.Fatalf("Nearest failed: %v", err)
		}
		if !ok {
			t.Fatal("Expected a match")
		}
		if match.Name != "alice" {
			t.Errorf("Expected alice, got %s", match.Name)
		}
		if match.Distance > 0.0001 {
			t.Errorf("Expected zero distance, got %v", match.Distance)
		}
	})

	t.Run("Replace", func(t *testing.T) {
		replacement := make([]float32, 128)
		replacement[2] = 1
		if err := repo.Save(ctx, "alice", nil, replacement, true); err != nil {
			t.Fatalf("Failed to replace: %v", err)
		}

		identities, err := repo.LoadAll(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var aliceSamples int
		for _, id := range identities {
			if id.Name == "alice" {
				aliceSamples++
			}
		}
		if aliceSamples != 1 {
			t.Errorf("Expected 1 alice sample after replace, got %d", aliceSamples)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := repo.Remove(ctx, "alice"); err != nil {
			t.Fatalf("Failed to remove: %v", err)
		}
		identities, _ := repo.LoadAll(ctx)
		for _, id := range identities {
			if id.Name == "alice" {
				t.Error("alice still present after Remove")
			}
		}
	})

	t.Run("NearestEmpty", func(t *testing.T) {
		if err := repo.Remove(ctx, "bob"); err != nil {
			t.Fatal(err)
		}
		_, ok, err := repo.Nearest(ctx, embedding)
		if err != nil {
			t.Fatalf("Nearest on empty table failed: %v", err)
		}
		if ok {
			t.Error("Expected no match on empty table")
		}
	})
}

func TestAttendanceLedger(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	l := NewAttendanceLedger(pool)

	morning := time.Date(2026, 8, 31, 8, 30, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 31, 17, 45, 0, 0, time.UTC)
	nextDay := time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)

	t.Run("IdempotentPerDay", func(t *testing.T) {
		marked, err := l.Mark(ctx, "alice", morning)
		if err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
		if !marked {
			t.Error("First mark of the day must return true")
		}

		marked, err = l.Mark(ctx, "alice", evening)
		if err != nil {
			t.Fatalf("Second mark failed: %v", err)
		}
		if marked {
			t.Error("Second mark on the same day must return false")
		}

		records, err := l.RecordsForDate(ctx, "2026-08-31")
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected exactly one record, got %d", len(records))
		}
		if records[0].Time != "08:30:00" {
			t.Errorf("Expected the first mark's time, got %s", records[0].Time)
		}
	})

	t.Run("DateRollover", func(t *testing.T) {
		marked, err := l.Mark(ctx, "alice", nextDay)
		if err != nil {
			t.Fatal(err)
		}
		if !marked {
			t.Error("Mark on a new day must return true")
		}

		records, err := l.Records(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 2 {
			t.Errorf("Expected 2 records across two days, got %d", len(records))
		}
	})

	t.Run("ConcurrentSameKey", func(t *testing.T) {
		const callers = 8
		var wg sync.WaitGroup
		results := make(chan bool, callers)

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				marked, err := l.Mark(ctx, "bob", morning)
				if err != nil {
					t.Errorf("Mark failed: %v", err)
					return
				}
				results <- marked
			}()
		}
		wg.Wait()
		close(results)

		var wins int
		for marked := range results {
			if marked {
				wins++
			}
		}
		if wins != 1 {
			t.Errorf("Uniqueness constraint must allow exactly one write, got %d", wins)
		}
	})
}
