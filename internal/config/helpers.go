package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FromEnvOrFlag returns the environment value when present, otherwise falls back to a CLI flag then default.
func FromEnvOrFlag(envKey, flagVal, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// FromEnvOrFlagInt resolves integer values with minimum validation.
// Values below min from either source are ignored.
func FromEnvOrFlagInt(envKey string, flagVal, def, min int) int {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		if n, err := strconv.Atoi(ev); err == nil && n >= min {
			return n
		}
	}
	if flagVal != 0 && flagVal >= min {
		return flagVal
	}
	return def
}

// FromEnvOrFlagDuration reads a duration given as plain seconds or Go syntax.
// An unparsable value from a source that was set is an error, not a silent default.
func FromEnvOrFlagDuration(envKey, flagVal string, def time.Duration) (time.Duration, error) {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		d, err := parseDuration(ev)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, err)
		}
		return d, nil
	}
	if fv := strings.TrimSpace(flagVal); fv != "" {
		d, err := parseDuration(fv)
		if err != nil {
			return 0, fmt.Errorf("flag for %s: %w", envKey, err)
		}
		return d, nil
	}
	return def, nil
}

func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
