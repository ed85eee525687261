package level

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Seeker14491/distancelog/internal/rpc"
)

const (
	levelFileExtension = ".bytes"
	leaderboardSuffix  = "_stable"
)

// ErrEmptyName is returned when a leaderboard name is requested for a level
// without a name.
var ErrEmptyName = errors.New("level name is empty")

// Level is one leaderboard of the poll: a level played in one mode, together
// with the top of its leaderboard at fetch time. A snapshot is a slice of
// Levels with unique leaderboard names.
type Level struct {
	Name            string                  `json:"name"`
	Mode            Mode                    `json:"mode"`
	LeaderboardName string                  `json:"leaderboard_name"`
	Workshop        *rpc.WorkshopItem       `json:"workshop_response"`
	Leaderboard     rpc.LeaderboardResponse `json:"leaderboard_response"`
	FetchedAt       time.Time               `json:"timestamp"`
}

// First returns the current record of the level, if it has one.
func (l Level) First() (rpc.LeaderboardEntry, bool) {
	return l.Leaderboard.First()
}

// IsWorkshop reports whether the level is community-submitted.
func (l Level) IsWorkshop() bool {
	return l.Workshop != nil
}

// WorkshopID returns the published file id of a workshop level, or 0 for an
// official level.
func (l Level) WorkshopID() uint64 {
	if !l.IsWorkshop() {
		return 0
	}
	return l.Workshop.PublishedFileID
}

// OfficialLeaderboardName returns "<name>_<modeID>_stable".
func OfficialLeaderboardName(name string, mode Mode) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	return name + "_" + strconv.Itoa(mode.ID()) + leaderboardSuffix, nil
}

// WorkshopLeaderboardName returns "<file>_<modeID>_<owner>_stable" where
// file is fileName without its ".bytes" extension.
func WorkshopLeaderboardName(fileName string, mode Mode, owner uint64) (string, error) {
	name := strings.TrimSuffix(fileName, levelFileExtension)
	if name == "" {
		return "", ErrEmptyName
	}
	return name + "_" + strconv.Itoa(mode.ID()) + "_" + strconv.FormatUint(owner, 10) + leaderboardSuffix, nil
}
