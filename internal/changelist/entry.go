package changelist

import (
	"strconv"
	"time"

	"github.com/Seeker14491/distancelog/internal/level"
)

// FetchTimeLayout is the layout of [Entry.FetchTime]: RFC 1123 with a
// numeric zone, such as "Mon, 02 Jan 2006 15:04:05 -0700".
const FetchTimeLayout = time.RFC1123Z

// Entry is one detected record change. Entries are never modified after they
// are appended to a changelist.
//
// Optional fields are nil for official levels (workshop fields) or for a
// level's first record (previous holder fields) and encode as JSON null.
// Steam ids are decimal strings.
type Entry struct {
	MapName                string     `json:"map_name"`
	MapAuthor              *string    `json:"map_author"`
	MapPreview             *string    `json:"map_preview"`
	Mode                   level.Mode `json:"mode"`
	NewRecordholder        string     `json:"new_recordholder"`
	OldRecordholder        *string    `json:"old_recordholder"`
	RecordNew              string     `json:"record_new"`
	RecordOld              *string    `json:"record_old"`
	WorkshopItemID         *string    `json:"workshop_item_id"`
	SteamIDAuthor          *string    `json:"steam_id_author"`
	SteamIDNewRecordholder string     `json:"steam_id_new_recordholder"`
	SteamIDOldRecordholder *string    `json:"steam_id_old_recordholder"`
	FetchTime              string     `json:"fetch_time"`
}

// IsLikelyDuplicateOf reports whether e records the same change as other:
// same level and mode, same new score, same workshop item and author, same
// new record holder. Holder names and fetch times are not compared since
// they change without the record changing.
func (e Entry) IsLikelyDuplicateOf(other Entry) bool {
	return e.MapName == other.MapName &&
		e.Mode == other.Mode &&
		e.RecordNew == other.RecordNew &&
		equalOptional(e.WorkshopItemID, other.WorkshopItemID) &&
		equalOptional(e.SteamIDAuthor, other.SteamIDAuthor) &&
		e.SteamIDNewRecordholder == other.SteamIDNewRecordholder
}

// newEntry builds the entry for lvl's current record. prev is the previous
// record, or nil for a first record.
func newEntry(lvl level.Level, first, prev *levelRecord) Entry {
	e := Entry{
		MapName:                lvl.Name,
		Mode:                   lvl.Mode,
		NewRecordholder:        first.holder,
		RecordNew:              lvl.Mode.FormatScore(first.score),
		SteamIDNewRecordholder: strconv.FormatUint(first.steamID, 10),
		FetchTime:              lvl.FetchedAt.Format(FetchTimeLayout),
	}

	if lvl.IsWorkshop() {
		ws := lvl.Workshop
		e.MapAuthor = ptr(ws.AuthorName)
		e.MapPreview = ptr(ws.PreviewURL)
		e.WorkshopItemID = ptr(strconv.FormatUint(ws.PublishedFileID, 10))
		e.SteamIDAuthor = ptr(strconv.FormatUint(ws.SteamIDOwner, 10))
	}

	if prev != nil {
		e.OldRecordholder = ptr(prev.holder)
		e.RecordOld = ptr(lvl.Mode.FormatScore(prev.score))
		e.SteamIDOldRecordholder = ptr(strconv.FormatUint(prev.steamID, 10))
	}

	return e
}

// levelRecord is the rank 1 entry of a leaderboard.
type levelRecord struct {
	holder  string
	steamID uint64
	score   int32
}

func recordOf(lvl level.Level) (*levelRecord, bool) {
	first, ok := lvl.First()
	if !ok {
		return nil, false
	}
	return &levelRecord{holder: first.PlayerName, steamID: first.SteamID, score: first.Score}, true
}

func ptr(s string) *string {
	return &s
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
