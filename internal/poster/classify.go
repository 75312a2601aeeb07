package poster

import (
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// failureKind is the internal taxonomy classify maps Bot API errors onto.
type failureKind int

const (
	kindGeneric failureKind = iota
	kindFlood
	kindUnreachable
	kindNoRights
)

// classify inspects a Bot API error and returns its kind plus the advised
// wait for flood control.
func classify(err error) (failureKind, time.Duration) {
	if err == nil {
		return kindGeneric, 0
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return kindFlood, time.Duration(flood.RetryAfter) * time.Second
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		desc := strings.ToLower(apiErr.Description)
		switch {
		case strings.Contains(desc, "not enough rights"),
			strings.Contains(desc, "administrator rights"),
			strings.Contains(desc, "have no rights"):
			return kindNoRights, 0
		case apiErr.Code == 403,
			strings.Contains(desc, "chat not found"),
			strings.Contains(desc, "channel is private"),
			strings.Contains(desc, "kicked"),
			strings.Contains(desc, "deactivated"):
			return kindUnreachable, 0
		}
	}

	return kindGeneric, 0
}
