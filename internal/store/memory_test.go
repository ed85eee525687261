package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/Seeker14491/distancelog/internal/changelist"
	"github.com/Seeker14491/distancelog/internal/level"
)

func TestMemoryStore_EmptyLoadsNotExist(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.LoadSnapshot(); !errors.Is(err, ErrNotExist) {
		t.Errorf("LoadSnapshot() error = %v, want ErrNotExist", err)
	}
	if _, err := s.LoadChangelist(); !errors.Is(err, ErrNotExist) {
		t.Errorf("LoadChangelist() error = %v, want ErrNotExist", err)
	}
}

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	s := NewMemoryStore()

	levels := []level.Level{{Name: "Dodge", Mode: level.Challenge, LeaderboardName: "Dodge_8_stable"}}
	if err := s.SaveSnapshot(levels); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	entries := []changelist.Entry{{MapName: "Dodge", Mode: level.Challenge}}
	if err := s.SaveChangelist(entries); err != nil {
		t.Fatalf("SaveChangelist() error = %v", err)
	}

	gotLevels, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(gotLevels) != 1 || gotLevels[0].LeaderboardName != "Dodge_8_stable" {
		t.Errorf("LoadSnapshot() = %+v", gotLevels)
	}

	gotEntries, err := s.LoadChangelist()
	if err != nil {
		t.Fatalf("LoadChangelist() error = %v", err)
	}
	if len(gotEntries) != 1 || gotEntries[0].MapName != "Dodge" {
		t.Errorf("LoadChangelist() = %+v", gotEntries)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()

	levels := []level.Level{{LeaderboardName: "a"}}
	_ = s.SaveSnapshot(levels)
	levels[0].LeaderboardName = "modified after save"

	got, _ := s.LoadSnapshot()
	got[0].LeaderboardName = "modified after load"

	again, _ := s.LoadSnapshot()
	if again[0].LeaderboardName != "a" {
		t.Errorf("LeaderboardName = %q, want %q", again[0].LeaderboardName, "a")
	}
}

func TestMemoryStore_SaveEmptyChangelist(t *testing.T) {
	s := NewMemoryStore()
	_ = s.SaveChangelist(nil)

	entries, err := s.LoadChangelist()
	if err != nil {
		t.Fatalf("LoadChangelist() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	numGoroutines := 10
	numOps := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				_ = s.SaveChangelist([]changelist.Entry{{MapName: "x"}})
				_ = s.SaveSnapshot([]level.Level{{LeaderboardName: "x"}})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				_, _ = s.LoadChangelist()
				_, _ = s.LoadSnapshot()
			}
		}()
	}

	wg.Wait()
}
