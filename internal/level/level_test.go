package level

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Seeker14491/distancelog/internal/rpc"
)

func TestMode_Better(t *testing.T) {
	tests := []struct {
		mode Mode
		a, b int32
		want bool
	}{
		{Sprint, 90000, 95000, true},
		{Sprint, 95000, 90000, false},
		{Sprint, 90000, 90000, false},
		{Challenge, 90000, 95000, true},
		{Challenge, 95000, 95000, false},
		{Stunt, 12000, 10000, true},
		{Stunt, 10000, 12000, false},
		{Stunt, 12000, 12000, false},
	}

	for _, tt := range tests {
		if got := tt.mode.Better(tt.a, tt.b); got != tt.want {
			t.Errorf("%s.Better(%d, %d) = %v, want %v", tt.mode, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMode_FormatScore(t *testing.T) {
	tests := []struct {
		mode  Mode
		score int32
		want  string
	}{
		{Sprint, 17767890, "04:56:07.89"},
		{Sprint, 0, "00:00:00.00"},
		{Sprint, 95009, "00:01:35.00"},
		{Challenge, 61999, "00:01:01.99"},
		{Sprint, 360000000, "100:00:00.00"},
		{Sprint, -1500, "-00:00:01.50"},
		{Stunt, 12000, "12000 eV"},
		{Stunt, 0, "0 eV"},
	}

	for _, tt := range tests {
		if got := tt.mode.FormatScore(tt.score); got != tt.want {
			t.Errorf("%s.FormatScore(%d) = %q, want %q", tt.mode, tt.score, got, tt.want)
		}
	}
}

func TestMode_IDs(t *testing.T) {
	want := map[Mode]int{Sprint: 1, Stunt: 2, Challenge: 8}
	for mode, id := range want {
		if got := mode.ID(); got != id {
			t.Errorf("%s.ID() = %d, want %d", mode, got, id)
		}
	}
}

func TestMode_JSON(t *testing.T) {
	data, err := json.Marshal(Challenge)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"Challenge"` {
		t.Errorf("Marshal(Challenge) = %s, want %q", data, "Challenge")
	}

	var m Mode
	if err := json.Unmarshal([]byte(`"Stunt"`), &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m != Stunt {
		t.Errorf("Unmarshal(Stunt) = %v, want %v", m, Stunt)
	}

	if err := json.Unmarshal([]byte(`"Tag"`), &m); err == nil {
		t.Error("Unmarshal(Tag) error = nil, want error")
	}
	if _, err := json.Marshal(Mode(0)); err == nil {
		t.Error("Marshal(Mode(0)) error = nil, want error")
	}
}

func TestLeaderboardNames(t *testing.T) {
	got, err := OfficialLeaderboardName("Broken Symmetry", Sprint)
	if err != nil {
		t.Fatalf("OfficialLeaderboardName() error = %v", err)
	}
	if got != "Broken Symmetry_1_stable" {
		t.Errorf("OfficialLeaderboardName() = %q, want %q", got, "Broken Symmetry_1_stable")
	}

	got, err = WorkshopLeaderboardName("canyon run.bytes", Challenge, 76561198000000042)
	if err != nil {
		t.Fatalf("WorkshopLeaderboardName() error = %v", err)
	}
	if want := "canyon run_8_76561198000000042_stable"; got != want {
		t.Errorf("WorkshopLeaderboardName() = %q, want %q", got, want)
	}

	if _, err := OfficialLeaderboardName("", Stunt); !errors.Is(err, ErrEmptyName) {
		t.Errorf("OfficialLeaderboardName(\"\") error = %v, want ErrEmptyName", err)
	}
	if _, err := WorkshopLeaderboardName(".bytes", Stunt, 1); !errors.Is(err, ErrEmptyName) {
		t.Errorf("WorkshopLeaderboardName(.bytes) error = %v, want ErrEmptyName", err)
	}
}

func TestLevel_JSONShape(t *testing.T) {
	lvl := Level{
		Name:            "Dodge",
		Mode:            Challenge,
		LeaderboardName: "Dodge_8_stable",
		Leaderboard: rpc.LeaderboardResponse{
			Entries: []rpc.LeaderboardEntry{{SteamID: 9, GlobalRank: 1, Score: 4200, PlayerName: "zed"}},
		},
		FetchedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(lvl)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"name", "mode", "leaderboard_name", "workshop_response", "leaderboard_response", "timestamp"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing JSON field %q in %s", key, data)
		}
	}
	if string(fields["workshop_response"]) != "null" {
		t.Errorf("workshop_response = %s, want null", fields["workshop_response"])
	}

	var back Level
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal(Level) error = %v", err)
	}
	if back.Mode != Challenge || back.WorkshopID() != 0 || back.IsWorkshop() {
		t.Errorf("decoded level = %+v", back)
	}
}
