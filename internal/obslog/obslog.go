// Package obslog wires up the process-wide structured logger, in the
// style saiputravu-Exchange configures zerolog for its TCP server: one
// console writer in development, one call site, everything downstream
// imports github.com/rs/zerolog/log directly.
package obslog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Call once from main.
func Init(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(console).With().Timestamp().Caller().Logger()
}
