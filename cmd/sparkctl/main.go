package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/spark/internal/lock"
	"github.com/matheus3301/spark/internal/profile"
	"github.com/matheus3301/spark/internal/store"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	limitFlag := flag.Int("limit", 50, "maximum rows to list")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "status":
		cmdStatus(name, *jsonFlag)
	case "events":
		kind := ""
		if len(args) >= 2 {
			kind = args[1]
		}
		cmdEvents(openStore(name), kind, *limitFlag, *jsonFlag)
	case "stats":
		cmdStats(openStore(name), *jsonFlag)
	case "sessions":
		cmdSessions(openStore(name), *limitFlag, *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: sparkctl [--profile <name>] [--json] [--limit n] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status           Show whether a client is running")
	fmt.Fprintln(os.Stderr, "  events [kind]    List recorded conversation events")
	fmt.Fprintln(os.Stderr, "  stats            Count events by kind")
	fmt.Fprintln(os.Stderr, "  sessions         List opened conversations")
}

// openStore opens the profile database, creating the schema if the client
// never ran.
func openStore(name string) *store.DB {
	if err := profile.EnsureDir(name); err != nil {
		fatal(err)
	}
	db, err := store.Open(profile.DBPath(name))
	if err != nil {
		fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		fatal(err)
	}
	return db
}

func cmdStatus(name string, jsonOut bool) {
	holder, running, err := lock.ReadHolder(profile.Dir(name))
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(struct {
			Profile string    `json:"profile"`
			Running bool      `json:"running"`
			PID     int       `json:"pid,omitempty"`
			Since   time.Time `json:"since,omitzero"`
		}{name, running, holder.PID, holder.Since})
		return
	}
	fmt.Printf("Profile: %s\n", name)
	if !running {
		fmt.Println("Status:  stopped")
		return
	}
	fmt.Printf("Status:  running (pid %d)\n", holder.PID)
	if !holder.Since.IsZero() {
		fmt.Printf("Since:   %s\n", holder.Since.Local().Format(time.DateTime))
	}
}

func cmdEvents(db *store.DB, kind string, limit int, jsonOut bool) {
	defer func() { _ = db.Close() }()
	events, err := db.ListEvents(kind, limit)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(events)
		return
	}
	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return
	}
	for _, e := range events {
		fmt.Printf("%s  %-20s %-12s %s\n", formatMillis(e.OccurredAt), e.Kind, e.PeerID, e.Detail)
	}
}

func cmdStats(db *store.DB, jsonOut bool) {
	defer func() { _ = db.Close() }()
	counts, err := db.EventCounts()
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(counts)
		return
	}
	if len(counts) == 0 {
		fmt.Println("No events recorded.")
		return
	}
	for _, c := range counts {
		fmt.Printf("%-20s %d\n", c.Kind, c.Count)
	}
}

func cmdSessions(db *store.DB, limit int, jsonOut bool) {
	defer func() { _ = db.Close() }()
	sessions, err := db.ListSessions(limit)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(sessions)
		return
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return
	}
	for _, s := range sessions {
		closed := "open"
		if s.ClosedAt != 0 {
			closed = formatMillis(s.ClosedAt)
		}
		fmt.Printf("%-36s %-12s %s -> %s\n", s.ID, s.PeerID, formatMillis(s.OpenedAt), closed)
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
