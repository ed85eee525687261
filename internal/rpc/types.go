package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrClosed is returned by [Transport.Send] after the transport has been closed.
var ErrClosed = errors.New("rpc transport closed")

// ErrProtocol indicates a response envelope that could not be decoded or did
// not belong to the request it answered.
var ErrProtocol = errors.New("rpc protocol error")

// RemoteError is an error envelope returned by the proxy.
type RemoteError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// LeaderboardEntry is a single ranked score on a leaderboard.
type LeaderboardEntry struct {
	SteamID    uint64 `json:"steam_id"`
	GlobalRank int32  `json:"global_rank"`
	Score      int32  `json:"score"`
	PlayerName string `json:"player_name"`
}

// LeaderboardResponse is a contiguous range of a leaderboard, ordered by rank.
type LeaderboardResponse struct {
	Entries      []LeaderboardEntry `json:"entries"`
	TotalEntries int32              `json:"total_entries,omitempty"`
}

// First returns the rank 1 entry of the range, if present.
func (r LeaderboardResponse) First() (LeaderboardEntry, bool) {
	if len(r.Entries) == 0 {
		return LeaderboardEntry{}, false
	}
	return r.Entries[0], true
}

// WorkshopItem describes a community-submitted level.
type WorkshopItem struct {
	PublishedFileID uint64   `json:"published_file_id"`
	SteamIDOwner    uint64   `json:"steam_id_owner"`
	FileName        string   `json:"file_name"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	TimeCreated     uint32   `json:"time_created,omitempty"`
	TimeUpdated     uint32   `json:"time_updated,omitempty"`
	FileSize        int32    `json:"file_size,omitempty"`
	VotesUp         uint32   `json:"votes_up,omitempty"`
	VotesDown       uint32   `json:"votes_down,omitempty"`
	Score           float32  `json:"score"`
	Tags            []string `json:"tags"`
	AuthorName      string   `json:"author_name"`
	PreviewURL      string   `json:"preview_url"`
}

// HasTag reports whether the item carries tag.
func (w WorkshopItem) HasTag(tag string) bool {
	return slices.Contains(w.Tags, tag)
}
