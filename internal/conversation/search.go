package conversation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matheus3301/spark/internal/message"
)

// DateFilter restricts search results to a time window ending now.
type DateFilter string

const (
	DateAll   DateFilter = "all"
	DateToday DateFilter = "today"
	DateWeek  DateFilter = "week"
	DateMonth DateFilter = "month"
)

// MediaFilter restricts search results by payload.
type MediaFilter string

const (
	MediaAll   MediaFilter = "all"
	MediaText  MediaFilter = "text"
	MediaImage MediaFilter = "image"
	MediaAudio MediaFilter = "audio"
	MediaVideo MediaFilter = "video"
	MediaCall  MediaFilter = "call"
)

// ParseDateFilter accepts a filter name; empty means all.
func ParseDateFilter(s string) (DateFilter, error) {
	switch f := DateFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return DateAll, nil
	case DateAll, DateToday, DateWeek, DateMonth:
		return f, nil
	default:
		return "", fmt.Errorf("unknown date filter %q", s)
	}
}

// ParseMediaFilter accepts a filter name; empty means all.
func ParseMediaFilter(s string) (MediaFilter, error) {
	switch f := MediaFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return MediaAll, nil
	case MediaAll, MediaText, MediaImage, MediaAudio, MediaVideo, MediaCall:
		return f, nil
	default:
		return "", fmt.Errorf("unknown media filter %q", s)
	}
}

// Query describes a message search.
type Query struct {
	Text  string
	Date  DateFilter
	Media MediaFilter
}

// Filter returns the messages matching q, newest first. msgs is not
// modified. Unsent scheduled messages never match.
func Filter(msgs []message.Message, q Query, now time.Time) []message.Message {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	type hit struct {
		pos int
		m   message.Message
	}
	var hits []hit
	for i, m := range msgs {
		if m.IsScheduled {
			continue
		}
		if !matchDate(m.Timestamp, q.Date, now) || !matchMedia(&m, q.Media) || !matchText(&m, needle) {
			continue
		}
		hits = append(hits, hit{pos: i, m: m})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.m.Timestamp.Equal(b.m.Timestamp) {
			return a.pos > b.pos
		}
		return a.m.Timestamp.After(b.m.Timestamp)
	})
	out := make([]message.Message, len(hits))
	for i, h := range hits {
		out[i] = h.m
	}
	return out
}

func matchText(m *message.Message, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(m.Text), needle) {
		return true
	}
	if m.Call != nil {
		label := strings.ToLower(string(m.Call.Type)) + " call"
		return strings.Contains(label, needle)
	}
	return false
}

func matchMedia(m *message.Message, f MediaFilter) bool {
	switch f {
	case "", MediaAll:
		return true
	case MediaCall:
		return m.Call != nil
	case MediaText:
		return m.Call == nil && m.Media == nil
	default:
		return m.Media != nil && string(m.Media.Kind) == string(f)
	}
}

func matchDate(ts time.Time, f DateFilter, now time.Time) bool {
	switch f {
	case "", DateAll:
		return true
	case DateToday:
		y, mo, d := now.Date()
		ty, tmo, td := ts.In(now.Location()).Date()
		return y == ty && mo == tmo && d == td
	case DateWeek:
		return !ts.Before(now.Add(-7 * 24 * time.Hour))
	case DateMonth:
		return !ts.Before(now.Add(-30 * 24 * time.Hour))
	default:
		return false
	}
}
