package journal_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/stoplight"
	"github.com/creachadair/stoplight/internal/journal"
)

func openTemp(t *testing.T) (*journal.Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sub", "journal.db")
	j, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j, path
}

func TestOpen(t *testing.T) {
	j, path := openTemp(t)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Database file was not created: %v", err)
	}

	// Reopening an existing database preserves its contents.
	ctx := context.Background()
	if err := j.RecordTransition(ctx, stoplight.Green, time.Now()); err != nil {
		t.Fatalf("RecordTransition: unexpected error: %v", err)
	}
	j.Close()

	j2, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Reopen: unexpected error: %v", err)
	}
	defer j2.Close()
	trs, err := j2.Transitions(ctx)
	if err != nil {
		t.Fatalf("Transitions: unexpected error: %v", err)
	}
	if len(trs) != 1 || trs[0].Phase != stoplight.Green {
		t.Errorf("Transitions after reopen: got %+v, want one green", trs)
	}
}

func TestTransitions(t *testing.T) {
	j, _ := openTemp(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	want := []stoplight.Phase{stoplight.Green, stoplight.Red, stoplight.Green}
	for i, p := range want {
		if err := j.RecordTransition(ctx, p, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordTransition %d: unexpected error: %v", i, err)
		}
	}

	got, err := j.Transitions(ctx)
	if err != nil {
		t.Fatalf("Transitions: unexpected error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Transitions: got %d rows, want %d", len(got), len(want))
	}
	for i, tr := range got {
		if tr.Phase != want[i] {
			t.Errorf("Transition %d: got phase %v, want %v", i, tr.Phase, want[i])
		}
		if at := base.Add(time.Duration(i) * time.Second); !tr.At.Equal(at) {
			t.Errorf("Transition %d: got time %v, want %v", i, tr.At, at)
		}
	}
}

func TestCrossings(t *testing.T) {
	j, _ := openTemp(t)
	ctx := context.Background()

	// Record concurrently, as the vehicles of a simulation do.
	const numVehicles = 4
	at := time.Unix(1700000000, 0)
	var wg sync.WaitGroup
	for i := range numVehicles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := j.RecordCrossing(ctx, i+1, time.Duration(i)*time.Millisecond, at); err != nil {
				t.Errorf("RecordCrossing %d: unexpected error: %v", i+1, err)
			}
		}()
	}
	wg.Wait()

	got, err := j.Crossings(ctx)
	if err != nil {
		t.Fatalf("Crossings: unexpected error: %v", err)
	}
	if len(got) != numVehicles {
		t.Fatalf("Crossings: got %d rows, want %d", len(got), numVehicles)
	}
	seen := make(map[int]bool)
	for _, c := range got {
		if want := time.Duration(c.Vehicle-1) * time.Millisecond; c.Waited != want {
			t.Errorf("Vehicle %d: got wait %v, want %v", c.Vehicle, c.Waited, want)
		}
		if !c.At.Equal(at) {
			t.Errorf("Vehicle %d: got time %v, want %v", c.Vehicle, c.At, at)
		}
		seen[c.Vehicle] = true
	}
	if len(seen) != numVehicles {
		t.Errorf("Crossings: got vehicles %v, want %d distinct", seen, numVehicles)
	}
}
