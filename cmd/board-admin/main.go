package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/config"
)

const usage = `Simple Board Admin CLI

A maintenance tool that talks to the board's database and counter store directly.

USAGE:
  board-admin <command> [options]

COMMANDS:
  list           List posts, newest first
  count          Count posts
  stats          Post counts per category and deletion state
  sequence       Show the last issued post number
  ensure-admin   Create or promote an admin account

ENVIRONMENT VARIABLES:
  Same as the server (DATABASE_URL, DB_SCHEMA, SEQUENCE_BACKEND, REDIS_URL,
  JWT_SECRET_KEY, IDENTITY_PROVIDER, ...).

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  board-admin list --category=notice --limit=20
  board-admin count --include-deleted
  board-admin stats --json
  board-admin sequence
  board-admin ensure-admin --email=admin@example.com --password=secret --name=Admin

OPTIONS:
  --category=<name>     Filter by category (apply, notice, cardnews)
  --limit=<n>           Maximum results (list only, default: 50)
  --page=<n>            Page number (list only, default: 1)
  --include-deleted     Include soft deleted posts (list, count)
  --json                Output as JSON
`

type options struct {
	filter  board.ContentFilter
	page    int
	limit   int
	useJSON bool
	args    map[string]string
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage + "\n")
		os.Exit(0)
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	opts := parseOptions(os.Args[2:])

	switch command {
	case "list", "count", "stats", "sequence":
		stores, err := cfg.OpenStores(ctx)
		if err != nil {
			log.Fatalf("Failed to open stores: %v", err)
		}
		defer stores.Close()

		switch command {
		case "list":
			handleList(ctx, stores, opts)
		case "count":
			handleCount(ctx, stores, opts)
		case "stats":
			handleStats(ctx, stores, opts)
		case "sequence":
			handleSequence(ctx, stores, opts)
		}
	case "ensure-admin":
		handleEnsureAdmin(ctx, cfg, opts)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

func parseOptions(args []string) options {
	opts := options{
		filter: board.ContentFilter{State: board.StateActive},
		page:   1,
		limit:  50,
		args:   map[string]string{},
	}

	for _, arg := range args {
		key, value := parseFlag(arg)
		switch key {
		case "json":
			opts.useJSON = true
		case "category":
			opts.filter.Category = board.Category(value)
		case "include-deleted":
			opts.filter.State = ""
		case "limit":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				opts.limit = n
			}
		case "page":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				opts.page = n
			}
		case "":
		default:
			opts.args[key] = value
		}
	}
	return opts
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func handleList(ctx context.Context, stores *config.Stores, opts options) {
	page, err := board.NewContentLister(stores.Repository).List(ctx, opts.filter, opts.page, opts.limit)
	if err != nil {
		log.Fatalf("Failed to list posts: %v", err)
	}

	if opts.useJSON {
		printJSON(page)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "POST\tCATEGORY\tTITLE\tFIRST IMAGE\n")
	for _, item := range page.Items {
		image := item.FirstImage
		if image == "" {
			image = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			item.PostNumber,
			item.Category,
			truncate(item.Title, 40),
			truncate(image, 60),
		)
	}
	w.Flush()

	fmt.Printf("\nShowing %d of %d", page.Count, page.Total)
	if shown := (opts.page-1)*opts.limit + page.Count; shown < page.Total {
		fmt.Printf(" (use --page=%d to continue)", opts.page+1)
	}
	fmt.Println()
}

func handleCount(ctx context.Context, stores *config.Stores, opts options) {
	count, err := stores.Repository.CountContents(ctx, opts.filter)
	if err != nil {
		log.Fatalf("Failed to count posts: %v", err)
	}

	if opts.useJSON {
		printJSON(map[string]int{"count": count})
		return
	}
	fmt.Printf("Total count: %d\n", count)
}

type statistics struct {
	Active     int                    `json:"active"`
	Deleted    int                    `json:"deleted"`
	ByCategory map[board.Category]int `json:"by_category"`
	ComputedAt time.Time              `json:"computed_at"`
}

func handleStats(ctx context.Context, stores *config.Stores, opts options) {
	count := func(filter board.ContentFilter) int {
		n, err := stores.Repository.CountContents(ctx, filter)
		if err != nil {
			log.Fatalf("Failed to count posts: %v", err)
		}
		return n
	}

	stats := statistics{
		Active:     count(board.ContentFilter{State: board.StateActive}),
		Deleted:    count(board.ContentFilter{State: board.StateSoftDeleted}),
		ByCategory: make(map[board.Category]int, len(board.Categories)),
		ComputedAt: time.Now(),
	}
	for _, category := range board.Categories {
		stats.ByCategory[category] = count(board.ContentFilter{State: board.StateActive, Category: category})
	}

	if opts.useJSON {
		printJSON(stats)
		return
	}

	fmt.Println("=== Post Statistics ===")
	fmt.Printf("\nActive:  %d\n", stats.Active)
	fmt.Printf("Deleted: %d\n", stats.Deleted)
	fmt.Println("\nBy Category:")
	for _, category := range board.Categories {
		fmt.Printf("  %-10s: %d\n", category, stats.ByCategory[category])
	}
	fmt.Printf("\nComputed at: %s\n", stats.ComputedAt.Format(time.RFC3339))
}

type currentReader interface {
	Current(ctx context.Context, name string) (int64, error)
}

func handleSequence(ctx context.Context, stores *config.Stores, opts options) {
	reader, ok := stores.Sequences.(currentReader)
	if !ok {
		log.Fatalf("The configured sequence backend does not persist counters")
	}

	current, err := reader.Current(ctx, board.SequenceContents)
	if err != nil {
		log.Fatalf("Failed to read sequence: %v", err)
	}

	if opts.useJSON {
		printJSON(map[string]interface{}{"sequence": board.SequenceContents, "current": current})
		return
	}
	fmt.Printf("Sequence %s: %d\n", board.SequenceContents, current)
}

func handleEnsureAdmin(ctx context.Context, cfg *config.Config, opts options) {
	email, password := opts.args["email"], opts.args["password"]
	if email == "" || password == "" {
		log.Fatalf("--email and --password are required")
	}
	name := opts.args["name"]
	if name == "" {
		name = cfg.Auth.BootstrapAdminName
	}

	app, err := cfg.Build(ctx)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}
	defer app.Close()

	user, err := app.Auth.EnsureAdmin(ctx, email, password, name)
	if err != nil {
		log.Fatalf("Failed to ensure admin: %v", err)
	}

	if opts.useJSON {
		printJSON(user)
		return
	}
	fmt.Printf("Admin ready: %s (%s)\n", user.Email, user.UID)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
