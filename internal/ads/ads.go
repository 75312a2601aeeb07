// Package ads owns the advertisement and channel records kept in the state
// store. Both collections are stored as single JSON documents and modified
// with optimistic-versioned read-modify-write, so concurrent editors cannot
// silently overwrite each other.
package ads

import (
	"errors"
	"strconv"
	"strings"
)

const (
	keyAdverts  = "adverts"
	keyChannels = "channels"

	keyLastPostedPrefix = "ad_posted:"
)

// ErrNotFound is returned when an advertisement id is unknown.
var ErrNotFound = errors.New("ads: advert not found")

// Advert is a user-authored message with its own posting window and
// channel subset. An empty Channels list means "post to the global list".
type Advert struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Schedule string   `json:"schedule"`
	Channels []string `json:"channels"`
	Active   bool     `json:"active"`
}

// ToggleChannel flips membership of ch in the given set and returns the result.
func ToggleChannel(set []string, ch string) []string {
	for i, c := range set {
		if c == ch {
			return append(set[:i:i], set[i+1:]...)
		}
	}
	return append(set, ch)
}

// NormalizeChannel converts a raw Telegram chat id into the canonical
// "-100…" channel form used throughout the store.
func NormalizeChannel(id int64) string {
	s := strconv.FormatInt(id, 10)
	if strings.HasPrefix(s, "-100") {
		return s
	}
	if id < 0 {
		id = -id
	}
	return "-100" + strconv.FormatInt(id, 10)
}
