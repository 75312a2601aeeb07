package poster

// Status classifies the result of a single-channel delivery attempt.
type Status int

const (
	// StatusDelivered means the advert reached the channel.
	StatusDelivered Status = iota
	// StatusRateLimited means the send was throttled even after waiting out
	// the advised retry interval.
	StatusRateLimited
	// StatusUnreachable means the channel is private, deleted or the sender
	// was kicked; the channel is skipped.
	StatusUnreachable
	// StatusPermissionDenied means the primary sender lacks posting rights
	// and the fallback (if any) also failed.
	StatusPermissionDenied
	// StatusFailed covers everything else.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusRateLimited:
		return "rate_limited"
	case StatusUnreachable:
		return "unreachable"
	case StatusPermissionDenied:
		return "permission_denied"
	default:
		return "failed"
	}
}

// Result is the outcome of delivering one advert to one channel.
type Result struct {
	Channel      string
	Status       Status
	FallbackUsed bool
	Err          error
}

// OK reports whether the delivery landed.
func (r Result) OK() bool { return r.Status == StatusDelivered }
