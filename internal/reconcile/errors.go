package reconcile

import (
	"errors"
	"fmt"
	"time"
)

// ErrBlockedArtist is returned for blacklisted pseudo-artists. Never retried;
// the artist is never created locally.
var ErrBlockedArtist = errors.New("reconcile: artist is blacklisted")

// ErrUnknownArtist is returned when the catalog has no record for the MBID.
// Surfaced to the caller; the artist is not created.
var ErrUnknownArtist = errors.New("reconcile: artist unknown to the catalog")

// CooldownError reports that an artist or release group is still inside its
// check window. It is a normal outcome, not a failure: nothing was fetched
// and nothing was written.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("reconcile: still cooling down for %s", e.Remaining.Round(time.Second))
}

// IsCooldown reports whether err is a cooldown no-op.
func IsCooldown(err error) bool {
	var ce *CooldownError
	return errors.As(err, &ce)
}
