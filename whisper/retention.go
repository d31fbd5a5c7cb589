package whisper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// unitSeconds holds the precision unit multipliers from §6. "mon" is not
// in the original Rust retention grammar (it only recognizes single-letter
// units plus a generic prefix match); it is added here because spec.md's
// grammar explicitly lists it alongside "min", both of which the original
// and the teacher's regexp collapse into a generic single-letter match.
// mon uses the carbon-storage-schemas convention of a 30-day month.
var unitSeconds = map[string]uint32{
	"s":   1,
	"m":   60,
	"min": 60,
	"h":   3600,
	"d":   86400,
	"w":   604800,
	"mon": 30 * 86400,
	"y":   31536000,
}

// durationRe matches "<digits><unit?>" where unit is one of the §6 units.
// Longer unit spellings ("min", "mon") are tried before the single-letter
// ones so "30min" doesn't get parsed as "30m" followed by a stray "in".
var durationRe = regexp.MustCompile(`(?i)^\s*(\d+)(min|mon|s|m|h|d|w|y)?\s*$`)

// retentionDefRe matches a full "<precision>:<retention>" pair.
var retentionDefRe = regexp.MustCompile(`(?i)^\s*([^:]+):([^:]+)\s*$`)

// ParseDuration parses a single "<count><unit?>" duration literal (§6) to
// seconds. With no unit, count is taken as a literal number of seconds.
func ParseDuration(s string) (uint32, error) {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("whisper: invalid duration %q", s)
	}

	count, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("whisper: invalid duration %q: %w", s, err)
	}

	unit := strings.ToLower(m[2])
	if unit == "" {
		return uint32(count), nil
	}

	mult, ok := unitSeconds[unit]
	if !ok {
		return 0, fmt.Errorf("whisper: invalid duration unit %q in %q", unit, s)
	}
	return uint32(count) * mult, nil
}

// ParseRetentionDef parses a "<precision>:<retention>" retention
// definition per §6's grammar, e.g. "60:1440", "15m:8", "1h:7d".
//
// precision is always a duration (a literal count with optional unit) and
// becomes seconds_per_point directly. retention is parsed as (count, unit):
// if its unit is present, points = count*unit_mult/precision; otherwise
// points = count literally.
func ParseRetentionDef(s string) (ArchiveInfo, error) {
	m := retentionDefRe.FindStringSubmatch(s)
	if m == nil {
		return ArchiveInfo{}, fmt.Errorf("whisper: invalid retention definition %q", s)
	}

	precisionPart := strings.TrimSpace(m[1])
	retentionPart := strings.TrimSpace(m[2])

	secondsPerPoint, err := ParseDuration(precisionPart)
	if err != nil {
		return ArchiveInfo{}, fmt.Errorf("whisper: invalid precision in %q: %w", s, err)
	}
	if secondsPerPoint == 0 {
		return ArchiveInfo{}, fmt.Errorf("whisper: invalid retention definition %q: precision cannot be zero", s)
	}

	rm := durationRe.FindStringSubmatch(retentionPart)
	if rm == nil {
		return ArchiveInfo{}, fmt.Errorf("whisper: invalid retention definition %q", s)
	}

	count, err := strconv.ParseUint(rm[1], 10, 32)
	if err != nil {
		return ArchiveInfo{}, fmt.Errorf("whisper: invalid retention in %q: %w", s, err)
	}

	unit := strings.ToLower(rm[2])
	var points uint32
	if unit == "" {
		points = uint32(count)
	} else {
		mult, ok := unitSeconds[unit]
		if !ok {
			return ArchiveInfo{}, fmt.Errorf("whisper: invalid retention unit %q in %q", unit, s)
		}
		points = (uint32(count) * mult) / secondsPerPoint
	}

	return ArchiveInfo{SecondsPerPoint: secondsPerPoint, Points: points}, nil
}

// ParseRetentionDefs parses a comma-separated list of retention
// definitions, e.g. "1m:1d,5m:30d,1h:1y", preserving order.
func ParseRetentionDefs(s string) ([]ArchiveInfo, error) {
	parts := strings.Split(s, ",")
	out := make([]ArchiveInfo, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		a, err := ParseRetentionDef(p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("whisper: no retentions parsed from %q", s)
	}
	return out, nil
}
