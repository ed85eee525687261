package level

import (
	"fmt"
	"strconv"
)

// Mode is a game mode with its own leaderboards.
//
// Mode is a closed set: every valid value is one of [Sprint], [Challenge]
// or [Stunt]. The zero value is invalid.
type Mode int

const (
	Sprint Mode = iota + 1
	Challenge
	Stunt
)

// Modes lists every valid [Mode] in catalog order.
var Modes = []Mode{Sprint, Challenge, Stunt}

// Name returns the mode's display name, which is also the workshop tag that
// marks a level as playable in the mode.
func (m Mode) Name() string {
	switch m {
	case Sprint:
		return "Sprint"
	case Challenge:
		return "Challenge"
	case Stunt:
		return "Stunt"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// String implements [fmt.Stringer].
func (m Mode) String() string {
	return m.Name()
}

// ID returns the game's numeric mode id used in leaderboard names.
func (m Mode) ID() int {
	switch m {
	case Sprint:
		return 1
	case Stunt:
		return 2
	case Challenge:
		return 8
	default:
		return 0
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m >= Sprint && m <= Stunt
}

// Better reports whether score a is strictly better than score b.
//
// Sprint and Challenge scores are elapsed milliseconds, lower is better.
// Stunt scores are points, higher is better.
func (m Mode) Better(a, b int32) bool {
	if m == Stunt {
		return a > b
	}
	return a < b
}

// FormatScore renders a raw score for display.
//
// Time modes render as HH:MM:SS.cc with centiseconds truncated, so
// 17767890 becomes "04:56:07.89". Stunt renders as "<points> eV".
func (m Mode) FormatScore(score int32) string {
	if m == Stunt {
		return strconv.Itoa(int(score)) + " eV"
	}

	ms := int64(score)
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}

	hours := ms / 3_600_000
	minutes := ms / 60_000 % 60
	seconds := ms / 1000 % 60
	centis := ms / 10 % 100

	return fmt.Sprintf("%s%02d:%02d:%02d.%02d", sign, hours, minutes, seconds, centis)
}

// ParseMode returns the mode with the given name.
func ParseMode(name string) (Mode, error) {
	for _, m := range Modes {
		if m.Name() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown game mode %q", name)
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid game mode %d", int(m))
	}
	return []byte(m.Name()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
