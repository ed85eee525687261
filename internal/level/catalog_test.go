package level

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Seeker14491/distancelog/internal/rpc"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWorkshop struct {
	items      []rpc.WorkshopItem
	err        error
	personas   map[uint64]string
	lookups    int
	maxResults uint32
	search     string
}

func (f *fakeWorkshop) WorkshopLevels(ctx context.Context, maxResults uint32, searchText string) ([]rpc.WorkshopItem, error) {
	f.maxResults = maxResults
	f.search = searchText
	return f.items, f.err
}

func (f *fakeWorkshop) PersonaName(ctx context.Context, steamID uint64) (string, error) {
	f.lookups++
	name, ok := f.personas[steamID]
	if !ok {
		return "", errors.New("unknown user")
	}
	return name, nil
}

func TestCatalog_OfficialLevels(t *testing.T) {
	c := &Catalog{Official: OfficialNames{
		Stunt:  {"Refraction"},
		Sprint: {"Broken Symmetry", "Lost Society"},
	}}

	levels, err := c.OfficialLevels()
	if err != nil {
		t.Fatalf("OfficialLevels() error = %v", err)
	}

	want := []string{"Broken Symmetry_1_stable", "Lost Society_1_stable", "Refraction_2_stable"}
	if len(levels) != len(want) {
		t.Fatalf("len(levels) = %d, want %d", len(levels), len(want))
	}
	for i, lvl := range levels {
		if lvl.LeaderboardName != want[i] {
			t.Errorf("levels[%d].LeaderboardName = %q, want %q", i, lvl.LeaderboardName, want[i])
		}
		if lvl.IsWorkshop() {
			t.Errorf("levels[%d].IsWorkshop() = true, want false", i)
		}
	}
}

func TestCatalog_OfficialLevelsDefault(t *testing.T) {
	c := &Catalog{}
	levels, err := c.OfficialLevels()
	if err != nil {
		t.Fatalf("OfficialLevels() error = %v", err)
	}
	if len(levels) != DefaultOfficialLevels().Count() {
		t.Errorf("len(levels) = %d, want %d", len(levels), DefaultOfficialLevels().Count())
	}

	seen := make(map[string]bool)
	for _, lvl := range levels {
		if seen[lvl.LeaderboardName] {
			t.Errorf("duplicate leaderboard name %q", lvl.LeaderboardName)
		}
		seen[lvl.LeaderboardName] = true
	}
}

func TestCatalog_OfficialLevelsRejectsEmptyName(t *testing.T) {
	c := &Catalog{Official: OfficialNames{Sprint: {""}}}
	if _, err := c.OfficialLevels(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("OfficialLevels() error = %v, want ErrEmptyName", err)
	}
}

func TestCatalog_WorkshopLevels(t *testing.T) {
	src := &fakeWorkshop{
		items: []rpc.WorkshopItem{
			{PublishedFileID: 11, SteamIDOwner: 100, FileName: "canyon.bytes", Title: "Canyon", Tags: []string{"Sprint", "Challenge"}, AuthorName: "bob"},
			{PublishedFileID: 12, SteamIDOwner: 200, FileName: "", Title: "No file", Tags: []string{"Sprint"}},
			{PublishedFileID: 13, SteamIDOwner: 200, FileName: "readme.txt", Title: "Not a level", Tags: []string{"Sprint"}},
			{PublishedFileID: 14, SteamIDOwner: 300, FileName: "park.bytes", Title: "Park", Tags: []string{"Stunt", "Level"}},
			{PublishedFileID: 15, SteamIDOwner: 300, FileName: "tag.bytes", Title: "Tag", Tags: []string{"Reverse Tag"}},
		},
		personas: map[uint64]string{300: "carol"},
	}
	c := &Catalog{
		Workshop: WorkshopQuery{Enabled: true, Search: "canyon"},
		Logger:   testLogger(),
	}

	levels, err := c.WorkshopLevels(context.Background(), src)
	if err != nil {
		t.Fatalf("WorkshopLevels() error = %v", err)
	}

	want := []struct {
		leaderboard string
		name        string
		author      string
		mode        Mode
	}{
		{"canyon_1_100_stable", "Canyon", "bob", Sprint},
		{"canyon_8_100_stable", "Canyon", "bob", Challenge},
		{"park_2_300_stable", "Park", "carol", Stunt},
	}
	if len(levels) != len(want) {
		t.Fatalf("len(levels) = %d, want %d: %+v", len(levels), len(want), levels)
	}
	for i, w := range want {
		lvl := levels[i]
		if lvl.LeaderboardName != w.leaderboard {
			t.Errorf("levels[%d].LeaderboardName = %q, want %q", i, lvl.LeaderboardName, w.leaderboard)
		}
		if lvl.Name != w.name {
			t.Errorf("levels[%d].Name = %q, want %q", i, lvl.Name, w.name)
		}
		if lvl.Mode != w.mode {
			t.Errorf("levels[%d].Mode = %v, want %v", i, lvl.Mode, w.mode)
		}
		if lvl.Workshop == nil || lvl.Workshop.AuthorName != w.author {
			t.Errorf("levels[%d].Workshop = %+v, want author %q", i, lvl.Workshop, w.author)
		}
	}

	if src.maxResults != DefaultWorkshopMaxResults {
		t.Errorf("maxResults = %d, want %d", src.maxResults, DefaultWorkshopMaxResults)
	}
	if src.search != "canyon" {
		t.Errorf("search = %q, want %q", src.search, "canyon")
	}
	if src.lookups != 1 {
		t.Errorf("persona lookups = %d, want 1", src.lookups)
	}
}

func TestCatalog_WorkshopPersonaFailureKeepsLevel(t *testing.T) {
	src := &fakeWorkshop{
		items: []rpc.WorkshopItem{
			{PublishedFileID: 21, SteamIDOwner: 999, FileName: "void.bytes", Title: "Void", Tags: []string{"Sprint"}},
		},
	}
	c := &Catalog{Workshop: WorkshopQuery{Enabled: true}, Logger: testLogger()}

	levels, err := c.WorkshopLevels(context.Background(), src)
	if err != nil {
		t.Fatalf("WorkshopLevels() error = %v", err)
	}
	if len(levels) != 1 {
		t.Fatalf("len(levels) = %d, want 1", len(levels))
	}
	if levels[0].Workshop.AuthorName != "" {
		t.Errorf("AuthorName = %q, want empty", levels[0].Workshop.AuthorName)
	}
	if levels[0].WorkshopID() != 21 {
		t.Errorf("WorkshopID() = %d, want 21", levels[0].WorkshopID())
	}
}

func TestCatalog_LevelsPropagatesWorkshopFailure(t *testing.T) {
	queryErr := errors.New("proxy unavailable")
	src := &fakeWorkshop{err: queryErr}
	c := &Catalog{
		Official: OfficialNames{Sprint: {"Departure"}},
		Workshop: WorkshopQuery{Enabled: true},
		Logger:   testLogger(),
	}

	if _, err := c.Levels(context.Background(), src); !errors.Is(err, queryErr) {
		t.Errorf("Levels() error = %v, want %v", err, queryErr)
	}
}

func TestCatalog_LevelsWorkshopDisabled(t *testing.T) {
	src := &fakeWorkshop{err: errors.New("must not be called")}
	c := &Catalog{Official: OfficialNames{Sprint: {"Departure"}}}

	levels, err := c.Levels(context.Background(), src)
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	if len(levels) != 1 || levels[0].LeaderboardName != "Departure_1_stable" {
		t.Errorf("Levels() = %+v", levels)
	}
}
