package rpctest

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Seeker14491/distancelog/internal/level"
	"github.com/Seeker14491/distancelog/internal/rpc"
)

// Method names answered by [Simulation.Handle].
const (
	MethodLeaderboardRange   = "GetLeaderboardRange"
	MethodLeaderboardPlayers = "GetLeaderboardPlayers"
	MethodWorkshopLevels     = "GetWorkshopLevels"
	MethodPersonaName        = "GetPersonaName"
)

const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Player is a simulated Steam account.
type Player struct {
	SteamID uint64
	Name    string
}

// DefaultPlayers is the roster used when a simulation has none.
var DefaultPlayers = []Player{
	{SteamID: 76561197960265729, Name: "alice"},
	{SteamID: 76561197960265730, Name: "bob"},
	{SteamID: 76561197960265731, Name: "carol"},
	{SteamID: 76561197960265732, Name: "dave"},
}

type board struct {
	higherBetter bool
	entries      []rpc.LeaderboardEntry
}

// Simulation is an in-memory leaderboard service. Boards are created on first
// query with a record by a random player, and each later range query improves
// the record with probability ImproveChance.
type Simulation struct {
	// ImproveChance is the probability, from 0 to 1, that a range query sees
	// a new record.
	ImproveChance float64

	mu       sync.Mutex
	rng      *rand.Rand
	players  []Player
	workshop []rpc.WorkshopItem
	boards   map[string]*board
}

// NewSimulation creates a simulation seeded for reproducible records. A nil
// players slice uses [DefaultPlayers].
func NewSimulation(seed int64, players []Player, workshop []rpc.WorkshopItem) *Simulation {
	if len(players) == 0 {
		players = DefaultPlayers
	}
	return &Simulation{
		ImproveChance: 0.2,
		rng:           rand.New(rand.NewSource(seed)),
		players:       slices.Clone(players),
		workshop:      slices.Clone(workshop),
		boards:        make(map[string]*board),
	}
}

// SetRecord replaces the record of a leaderboard.
func (s *Simulation) SetRecord(leaderboardName string, steamID uint64, score int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.board(leaderboardName)
	b.entries = []rpc.LeaderboardEntry{{
		SteamID:    steamID,
		GlobalRank: 1,
		Score:      score,
		PlayerName: s.nameOf(steamID),
	}}
}

// Record returns the current record of a leaderboard, if it has one.
func (s *Simulation) Record(leaderboardName string) (rpc.LeaderboardEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[leaderboardName]
	if !ok || len(b.entries) == 0 {
		return rpc.LeaderboardEntry{}, false
	}
	return b.entries[0], true
}

// Handle dispatches one call. It satisfies [HandlerFunc].
func (s *Simulation) Handle(method string, params json.RawMessage) (any, error) {
	var args []json.RawMessage
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, invalidParams(method, err)
		}
	}

	switch method {
	case MethodLeaderboardRange:
		var name string
		var start, end int32
		if err := decodeArgs(args, &name, &start, &end); err != nil {
			return nil, invalidParams(method, err)
		}
		return s.leaderboardRange(name, start, end), nil

	case MethodLeaderboardPlayers:
		var name string
		var ids []uint64
		if err := decodeArgs(args, &name, &ids); err != nil {
			return nil, invalidParams(method, err)
		}
		return s.leaderboardPlayers(name, ids), nil

	case MethodWorkshopLevels:
		var maxResults uint32
		var search string
		if err := decodeArgs(args, &maxResults, &search); err != nil {
			return nil, invalidParams(method, err)
		}
		return s.workshopLevels(maxResults, search), nil

	case MethodPersonaName:
		var id uint64
		if err := decodeArgs(args, &id); err != nil {
			return nil, invalidParams(method, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.nameOf(id), nil

	default:
		return nil, &rpc.RemoteError{Code: codeMethodNotFound, Message: "method not found: " + method}
	}
}

func (s *Simulation) leaderboardRange(name string, start, end int32) rpc.LeaderboardResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.board(name)
	if s.rng.Float64() < s.ImproveChance {
		s.improve(b)
	}

	resp := rpc.LeaderboardResponse{
		Entries:      []rpc.LeaderboardEntry{},
		TotalEntries: int32(len(b.entries)),
	}
	for _, e := range b.entries {
		if e.GlobalRank >= start && e.GlobalRank <= end {
			resp.Entries = append(resp.Entries, e)
		}
	}
	return resp
}

func (s *Simulation) leaderboardPlayers(name string, ids []uint64) rpc.LeaderboardResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.board(name)
	resp := rpc.LeaderboardResponse{
		Entries:      []rpc.LeaderboardEntry{},
		TotalEntries: int32(len(b.entries)),
	}
	for _, e := range b.entries {
		if slices.Contains(ids, e.SteamID) {
			resp.Entries = append(resp.Entries, e)
		}
	}
	return resp
}

func (s *Simulation) workshopLevels(maxResults uint32, search string) []rpc.WorkshopItem {
	items := make([]rpc.WorkshopItem, 0, len(s.workshop))
	search = strings.ToLower(search)
	for _, item := range s.workshop {
		if uint32(len(items)) >= maxResults {
			break
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Title), search) {
			continue
		}
		items = append(items, item)
	}
	return items
}

// board returns the named board, creating it with a random record. Callers
// must hold s.mu.
func (s *Simulation) board(name string) *board {
	if b, ok := s.boards[name]; ok {
		return b
	}

	b := &board{higherBetter: stuntBoard(name)}
	score := int32(30000 + s.rng.Intn(240000))
	if b.higherBetter {
		score = int32(1000 + s.rng.Intn(50000))
	}
	p := s.players[s.rng.Intn(len(s.players))]
	b.entries = []rpc.LeaderboardEntry{{
		SteamID:    p.SteamID,
		GlobalRank: 1,
		Score:      score,
		PlayerName: p.Name,
	}}
	s.boards[name] = b
	return b
}

// improve gives the record to a random player with a better score. Callers
// must hold s.mu.
func (s *Simulation) improve(b *board) {
	old := b.entries[0]
	p := s.players[s.rng.Intn(len(s.players))]

	step := int32(1 + s.rng.Intn(2000))
	score := old.Score - step
	if b.higherBetter {
		score = old.Score + step
	} else if score < 1 {
		return
	}

	old.GlobalRank = 2
	b.entries = []rpc.LeaderboardEntry{
		{SteamID: p.SteamID, GlobalRank: 1, Score: score, PlayerName: p.Name},
		old,
	}
}

// nameOf returns a player's persona name. Callers must hold s.mu.
func (s *Simulation) nameOf(steamID uint64) string {
	for _, p := range s.players {
		if p.SteamID == steamID {
			return p.Name
		}
	}
	return "player" + strconv.FormatUint(steamID, 10)
}

// stuntBoard reports whether a leaderboard name carries the Stunt mode id.
// Official names end in "_<mode>_stable" and workshop names in
// "_<mode>_<owner>_stable".
func stuntBoard(name string) bool {
	parts := strings.Split(strings.TrimSuffix(name, "_stable"), "_")
	if len(parts) < 2 {
		return false
	}
	mode := parts[len(parts)-1]
	if id, err := strconv.ParseUint(mode, 10, 64); err == nil && id > 8 && len(parts) >= 3 {
		mode = parts[len(parts)-2]
	}
	return mode == strconv.Itoa(level.Stunt.ID())
}

func decodeArgs(args []json.RawMessage, out ...any) error {
	if len(args) != len(out) {
		return fmt.Errorf("want %d params, got %d", len(out), len(args))
	}
	for i, arg := range args {
		if err := json.Unmarshal(arg, out[i]); err != nil {
			return fmt.Errorf("param %d: %w", i, err)
		}
	}
	return nil
}

func invalidParams(method string, err error) *rpc.RemoteError {
	return &rpc.RemoteError{Code: codeInvalidParams, Message: method + ": " + err.Error()}
}
