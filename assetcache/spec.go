package assetcache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
)

const DefaultSpec = "maximumSize=100"

var ErrInvalidSpec = errors.New("invalid cache spec")

// ParseSpec reads a comma separated list of key=value pairs:
//
//	maximumWeight=64MB,maximumSize=1000,expireAfterAccess=1h,expireAfterWrite=7d,initialCapacity=16
//
// Weights accept human readable sizes, durations accept Go durations and a
// "d" suffix for days. An empty spec is unbounded.
func ParseSpec(spec string) (Options, error) {
	var opts Options
	seen := make(map[string]bool)

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || value == "" {
			return Options{}, fmt.Errorf("%w: %q needs a value", ErrInvalidSpec, key)
		}
		if seen[key] {
			return Options{}, fmt.Errorf("%w: %s given twice", ErrInvalidSpec, key)
		}
		seen[key] = true

		var err error
		switch key {
		case "maximumWeight":
			opts.MaxWeight, err = units.RAMInBytes(value)
		case "maximumSize":
			opts.MaxEntries, err = parseCount(value)
		case "initialCapacity":
			opts.InitialCapacity, err = parseCount(value)
		case "expireAfterAccess":
			opts.ExpireAfterAccess, err = parseDuration(value)
		case "expireAfterWrite":
			opts.ExpireAfterWrite, err = parseDuration(value)
		default:
			return Options{}, fmt.Errorf("%w: unknown key %s", ErrInvalidSpec, key)
		}
		if err != nil {
			return Options{}, fmt.Errorf("%w: %s: %w", ErrInvalidSpec, key, err)
		}
	}
	return opts, nil
}

func parseCount(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

func parseDuration(value string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("negative duration %s", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", value)
	}
	return d, nil
}

// String renders the options back into spec form.
func (o Options) String() string {
	var parts []string
	if o.MaxWeight > 0 {
		parts = append(parts, "maximumWeight="+units.BytesSize(float64(o.MaxWeight)))
	}
	if o.MaxEntries > 0 {
		parts = append(parts, "maximumSize="+strconv.Itoa(o.MaxEntries))
	}
	if o.ExpireAfterAccess > 0 {
		parts = append(parts, "expireAfterAccess="+o.ExpireAfterAccess.String())
	}
	if o.ExpireAfterWrite > 0 {
		parts = append(parts, "expireAfterWrite="+o.ExpireAfterWrite.String())
	}
	if o.InitialCapacity > 0 {
		parts = append(parts, "initialCapacity="+strconv.Itoa(o.InitialCapacity))
	}
	return strings.Join(parts, ",")
}
