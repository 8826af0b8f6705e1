package binser

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

/*
===============================================================================
    Configuration
===============================================================================
*/

// BinserVersion equals the current (or aimed for) version of the software.
const BinserVersion = "0.1"

// Config represents the library configuration
type Config struct {
	Version  string
	LogLevel string

	// OmitStructNames selects the nameless buffered struct framing for
	// codecs constructed through `NewEncoding`. Both ends of a deployment
	// must agree; the two framings cannot be mixed.
	OmitStructNames bool

	// PreallocSize is the initial capacity, in bytes, of a fresh Encoder
	// buffer.
	PreallocSize int

	// do not access / write `_set`. It is used internally.
	_set bool
}

// intFromEnv retrieves `key` from the OS environment.
// if the key is not found, or cannot be expressed as an integer,
// `found` will be false.
func intFromEnv(key string) (val int, found bool) {
	valStr, found := os.LookupEnv(key)
	if !found {
		return
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		found = false
	}
	return
}

func intFromEnvDefault(key string, def int) (val int) {
	val, found := intFromEnv(key)
	if !found {
		val = def
	}
	return
}

func strFromEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func strFromEnvDefault(key string, def string) (val string) {
	val, found := strFromEnv(key)
	if !found {
		val = def
	}
	return
}

func boolFromEnv(key string) (val bool, found bool) {
	valStr, found := os.LookupEnv(key)
	if !found {
		return
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		found = false
	}
	return
}

func boolFromEnvDefault(key string, def bool) (val bool) {
	val, found := boolFromEnv(key)
	if !found {
		val = def
	}
	return
}

var config Config

// GetConfig returns the library configuration.
// Will set from environment if not already set.
func GetConfig() Config {
	if !config._set {
		config.Version = BinserVersion
		config.OmitStructNames = boolFromEnvDefault("BINSER_OMITSTRUCTNAMES", false)
		config.PreallocSize = intFromEnvDefault("BINSER_PREALLOC", 256)
		config.LogLevel = strings.ToLower(strFromEnvDefault("BINSER_LOGLEVEL", "info"))
		switch config.LogLevel {
		case "debug", "info", "warn", "error", "none", "disabled", "off":
			SetLoggingLevel(config.LogLevel)
		default:
			panic(`Invalid "BINSER_LOGLEVEL". Choose from "debug", "info", "warn", "error", or "none".`)
		}
		config._set = true
	}
	return config
}

// OverrideConfig overrides the configuration parsed from environment with the one provided
func OverrideConfig(newconfig Config) {
	if !newconfig._set { // to prevent being reverted with subsequent calls to `GetConfig`
		newconfig._set = true
	}
	config = newconfig
}

/*
===============================================================================
    Logging
===============================================================================
*/

// SetLoggingLevel takes a level string and accordingly adjusts the global
// zerolog level.
// Supported values: "debug", "info", "warn", "error", and
// "none" / "disabled" / "off" to silence the library entirely.
func SetLoggingLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "none", "disabled", "off":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}
}

// Debugf logs a formatted message at debug level
func Debugf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

// Warnf logs a formatted message at warn level
func Warnf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}
