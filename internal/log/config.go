package log

import (
	"time"

	"github.com/rs/zerolog"
)

const defaultSizeLimit = 4000

type Config struct {
	Segment struct {
		// The byte size at which the active segment is sealed. The check runs
		// before each write, so a segment may end up slightly larger.
		SizeLimit uint64
	}
	// Logger defaults to a stderr logger tagged with the handler's service name.
	Logger *zerolog.Logger
	// Now is the clock used for segment names. Defaults to time.Now.
	Now func() time.Time
}
