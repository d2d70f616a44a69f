package config

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ParseDurationField parses raw as a non-negative Go duration. Empty means 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid duration", goerr.V("field", path), goerr.V("value", raw))
	}
	if d < 0 {
		return 0, goerr.New("duration must be >= 0", goerr.V("field", path), goerr.V("value", raw))
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
