package level

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Seeker14491/distancelog/internal/rpc"
)

// DefaultWorkshopMaxResults is the workshop query size when none is configured.
const DefaultWorkshopMaxResults = 10000

// OfficialNames maps each mode to the names of its official levels, in
// display order.
type OfficialNames map[Mode][]string

// Count returns the total number of official levels across all modes.
func (n OfficialNames) Count() int {
	total := 0
	for _, names := range n {
		total += len(names)
	}
	return total
}

// DefaultOfficialLevels returns the official levels shipped with the game.
func DefaultOfficialLevels() OfficialNames {
	return OfficialNames{
		Sprint: {
			"Broken Symmetry",
			"Lost Society",
			"Negative Space",
			"Departure",
			"Ground Zero",
			"Aftermath",
			"Friction",
			"The Thing About Machines",
			"Amusement",
			"Corruption",
			"Monolith",
			"Uncanny Valley",
			"Instability",
			"Forgotten Utopia",
			"Hard Light",
			"Destination Unknown",
			"Cataclysm",
			"Mobilization",
			"Resonance",
			"Deadline",
			"Isolation",
		},
		Challenge: {
			"Dodge",
			"Thunder Struck",
			"Descent",
			"Grinder",
			"Red",
			"Elevation",
			"Disassembly Line",
			"Tempered",
			"Sidewinder",
			"Maelstrom",
			"Pulse",
			"Darkness",
		},
		Stunt: {
			"Refraction",
			"Space Skate",
			"Stunt Playground",
			"Tagtastic",
			"Neon Park",
			"Credits",
		},
	}
}

// WorkshopSource is the remote catalog of community levels. [rpc.Client]
// implements it.
type WorkshopSource interface {
	WorkshopLevels(ctx context.Context, maxResults uint32, searchText string) ([]rpc.WorkshopItem, error)
	PersonaName(ctx context.Context, steamID uint64) (string, error)
}

// WorkshopQuery configures workshop level discovery.
type WorkshopQuery struct {
	// Enabled turns workshop discovery on.
	Enabled bool

	// MaxResults bounds the query. Zero means [DefaultWorkshopMaxResults].
	MaxResults uint32

	// Search is passed to the query as its search text. Empty matches all.
	Search string
}

// Catalog enumerates the levels polled in one cycle.
//
// Catalog holds no state between cycles; the engine builds the level list
// from it at the start of every cycle since workshop levels come and go.
type Catalog struct {
	Official OfficialNames
	Workshop WorkshopQuery
	Logger   *slog.Logger
}

// Levels returns the official levels followed by the workshop levels, if
// workshop discovery is enabled. Leaderboards are not fetched yet.
func (c *Catalog) Levels(ctx context.Context, src WorkshopSource) ([]Level, error) {
	levels, err := c.OfficialLevels()
	if err != nil {
		return nil, err
	}
	if !c.Workshop.Enabled {
		return levels, nil
	}

	workshop, err := c.WorkshopLevels(ctx, src)
	if err != nil {
		return nil, err
	}
	return append(levels, workshop...), nil
}

// OfficialLevels normalizes the configured official names into Levels, by
// mode then configured order. A nil Official uses [DefaultOfficialLevels].
func (c *Catalog) OfficialLevels() ([]Level, error) {
	names := c.Official
	if names == nil {
		names = DefaultOfficialLevels()
	}

	levels := make([]Level, 0, names.Count())
	for _, mode := range Modes {
		for _, name := range names[mode] {
			lbName, err := OfficialLeaderboardName(name, mode)
			if err != nil {
				return nil, fmt.Errorf("invalid official %s level: %w", mode, err)
			}
			levels = append(levels, Level{
				Name:            name,
				Mode:            mode,
				LeaderboardName: lbName,
			})
		}
	}
	return levels, nil
}

// WorkshopLevels queries the workshop and returns one Level per item and mode
// tag. Items without a level file are skipped. Items without an author
// name get it resolved by steam id; a failed lookup leaves it empty.
func (c *Catalog) WorkshopLevels(ctx context.Context, src WorkshopSource) ([]Level, error) {
	logger := c.logger()

	maxResults := c.Workshop.MaxResults
	if maxResults == 0 {
		maxResults = DefaultWorkshopMaxResults
	}

	items, err := src.WorkshopLevels(ctx, maxResults, c.Workshop.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to query workshop levels: %w", err)
	}

	personas := make(map[uint64]string)

	var levels []Level
	for i := range items {
		item := items[i]
		if item.FileName == "" || !strings.HasSuffix(item.FileName, levelFileExtension) {
			continue
		}

		for _, mode := range Modes {
			if !item.HasTag(mode.Name()) {
				continue
			}

			lbName, err := WorkshopLeaderboardName(item.FileName, mode, item.SteamIDOwner)
			if err != nil {
				logger.Debug("skipping workshop item",
					"published_file_id", item.PublishedFileID,
					"error", err,
				)
				continue
			}

			if item.AuthorName == "" {
				item.AuthorName = c.persona(ctx, src, item.SteamIDOwner, personas)
			}

			meta := item
			levels = append(levels, Level{
				Name:            item.Title,
				Mode:            mode,
				LeaderboardName: lbName,
				Workshop:        &meta,
			})
		}
	}

	logger.Debug("workshop levels discovered",
		"items", len(items),
		"levels", len(levels),
	)
	return levels, nil
}

// persona resolves and caches the display name of steamID.
func (c *Catalog) persona(ctx context.Context, src WorkshopSource, steamID uint64, cache map[uint64]string) string {
	if name, ok := cache[steamID]; ok {
		return name
	}
	name, err := src.PersonaName(ctx, steamID)
	if err != nil {
		c.logger().Warn("persona lookup failed",
			"steam_id", steamID,
			"error", err,
		)
		name = ""
	}
	cache[steamID] = name
	return name
}

func (c *Catalog) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
