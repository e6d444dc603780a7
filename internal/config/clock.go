package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClockTime is a time of day used as an on-time cutoff.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseClock accepts "7", "07:30", "07:30:00" and "7:30 AM" style values.
func ParseClock(s string) (ClockTime, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	pm := false
	switch {
	case strings.HasSuffix(v, "AM"):
		v = strings.TrimSpace(strings.TrimSuffix(v, "AM"))
	case strings.HasSuffix(v, "PM"):
		v = strings.TrimSpace(strings.TrimSuffix(v, "PM"))
		pm = true
	}
	parts := strings.Split(v, ":")
	if len(parts) == 0 || len(parts) > 3 || parts[0] == "" {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
	}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
		}
		vals[i] = n
	}
	if pm && vals[0] < 12 {
		vals[0] += 12
	}
	c := ClockTime{Hour: vals[0], Minute: vals[1], Second: vals[2]}
	if c.Hour > 23 || c.Minute > 59 || c.Second > 59 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
	}
	return c, nil
}

// Seconds returns the offset from midnight.
func (c ClockTime) Seconds() int { return c.Hour*3600 + c.Minute*60 + c.Second }

func (c ClockTime) String() string {
	if c.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Label renders the cutoff the way dashboard headers spell it, e.g. "7:30 AM".
func (c ClockTime) Label() string {
	suffix := "AM"
	h := c.Hour
	if h >= 12 {
		suffix = "PM"
		if h > 12 {
			h -= 12
		}
	}
	if h == 0 {
		h = 12
	}
	if c.Second != 0 {
		return fmt.Sprintf("%d:%02d:%02d %s", h, c.Minute, c.Second, suffix)
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute, suffix)
}

// Key is a compact identifier usable in internal column names, e.g. "0730",
// or "073015" when the cutoff carries seconds.
func (c ClockTime) Key() string {
	if c.Second != 0 {
		return fmt.Sprintf("%02d%02d%02d", c.Hour, c.Minute, c.Second)
	}
	return fmt.Sprintf("%02d%02d", c.Hour, c.Minute)
}

func (c *ClockTime) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c ClockTime) MarshalYAML() (any, error) { return c.String(), nil }
