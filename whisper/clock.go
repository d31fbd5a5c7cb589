package whisper

import "github.com/benbjohnson/clock"

// Clock abstracts wall-clock access so that `now` in Update/Fetch/
// SuggestArchive can be driven by a mock in tests instead of sleeping,
// mirroring go-carbon's persister package which injects a
// github.com/benbjohnson/clock.Clock for the same reason.
type Clock = clock.Clock

// systemClock is the production clock used whenever a caller does not
// pass an explicit `now`.
var systemClock = clock.New()

func nowSeconds(c Clock) uint32 {
	if c == nil {
		c = systemClock
	}
	return uint32(c.Now().Unix())
}
