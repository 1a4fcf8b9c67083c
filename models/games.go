// ABOUTME: Playing intent: the games the account should appear to play
// ABOUTME: Each entry is a numeric app ID or a free-text non-Steam title

package models

import (
	"strconv"
	"strings"
)

// Game is one entry of the playing intent. Exactly one of AppID and
// Title is set.
type Game struct {
	AppID uint32
	Title string
}

// IsApp reports whether g refers to a store application.
func (g Game) IsApp() bool { return g.Title == "" }

func (g Game) String() string {
	if g.IsApp() {
		return strconv.FormatUint(uint64(g.AppID), 10)
	}
	return g.Title
}

// ParseGames splits a comma-separated list. Entries are trimmed and empty
// entries skipped; an entry that parses as an unsigned 32-bit integer is
// an app ID, anything else is a title.
func ParseGames(list string) []Game {
	parts := strings.Split(list, ",")
	games := make([]Game, 0, len(parts))
	for _, part := range parts {
		entry := strings.TrimSpace(part)
		if entry == "" {
			continue
		}
		if id, err := strconv.ParseUint(entry, 10, 32); err == nil {
			games = append(games, Game{AppID: uint32(id)})
			continue
		}
		games = append(games, Game{Title: entry})
	}
	return games
}
