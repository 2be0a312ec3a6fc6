package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

var errScheduleUsage = errors.New("usage: schedule <10m|HH:MM> <text>")

// ParseSchedule splits ":schedule" arguments into a send time and text. The
// time is either a duration from now or a wall-clock HH:MM, taken as its
// next occurrence.
func ParseSchedule(args string, now time.Time) (time.Time, string, error) {
	when, text, ok := strings.Cut(strings.TrimSpace(args), " ")
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return time.Time{}, "", errScheduleUsage
	}
	if d, err := time.ParseDuration(when); err == nil {
		return now.Add(d), text, nil
	}
	clock, err := time.ParseInLocation("15:04", when, now.Location())
	if err != nil {
		return time.Time{}, "", fmt.Errorf("bad time %q: %w", when, errScheduleUsage)
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, text, nil
}

// ParseToggle reads on/off style arguments.
func ParseToggle(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}
