// ronlog - riichi game result tracker
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/hazuki/ronlog/internal/api"
	"github.com/hazuki/ronlog/internal/auth"
	"github.com/hazuki/ronlog/internal/config"
	"github.com/hazuki/ronlog/internal/domain"
	"github.com/hazuki/ronlog/internal/events"
	"github.com/hazuki/ronlog/internal/storage"
)

var version = "dev"

const defaultConfigPath = "ronlog.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		cmdInit(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	case "game":
		cmdGame(os.Args[2:])
	case "games":
		cmdGames(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "leaderboard":
		cmdLeaderboard(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	case "fixstats":
		cmdFixStats(os.Args[2:])
	case "user":
		cmdUser(os.Args[2:])
	case "version":
		fmt.Printf("ronlog %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: ronlog <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init                                Write a default config file")
	fmt.Println("  serve                               Start the tracker server")
	fmt.Println("  game add [--id ID] [--date TS] <user> <score> [<user> <score> ...]")
	fmt.Println("                                      Record a finished game (3 or 4 players)")
	fmt.Println("  game get <game-id>                  Show a recorded game")
	fmt.Println("  game remove <game-id>               Delete a recorded game")
	fmt.Println("  games <user-id>                     Show all games for a player")
	fmt.Println("  stats <user-id>                     Show aggregate stats for a player")
	fmt.Println("  leaderboard [--sort KEY] [--top N]  Show ranked players")
	fmt.Println("  export [--dir PATH] [--gzip]        Write scores.csv and stats.csv")
	fmt.Println("  fixstats                            Rebuild the stats table from scores")
	fmt.Println("  user add [--admin] <username>       Add a user (prompts for password)")
	fmt.Println("  user remove <username>              Remove a user")
	fmt.Println("  user list                           List all users")
	fmt.Println("  user reset <username>               Reset a user's password")
	fmt.Println("  user admin <username>               Toggle admin status for a user")
	fmt.Println("  version                             Show version")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default ronlog.yml)")
	fmt.Println("  --url <url>        Base URL of the ronlog server (default: derived from config)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ronlog init")
	fmt.Println("  ronlog serve --config ronlog.yml")
	fmt.Println("  ronlog game add alice 45000 bob 30000 carol 25000")
	fmt.Println("  ronlog leaderboard --sort avg_rank --top 10")
	fmt.Println("  ronlog user add --admin myuser")
}

// cmdInit writes a default config file
func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	fs.Parse(args)

	if _, err := os.Stat(*configPath); err == nil {
		fmt.Printf("Config already exists at %s. Remove it first to re-initialize.\n", *configPath)
		return
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			ListenAddr: "127.0.0.1",
			HTTPPort:   8080,
		},
		Database: config.DatabaseConfig{
			Path: "ronlog.db",
		},
		Auth: config.AuthConfig{
			TokenDuration: 24 * time.Hour,
		},
		Events: config.EventsConfig{
			Subject: "ronlog.games",
		},
	}
	if err := config.Save(*configPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Config written to %s\n", *configPath)
	fmt.Println("Set auth.jwt_secret before exposing the server.")
}

// cmdServe starts the tracker server
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Ronlog %s starting...", version)

	// Initialize storage
	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	log.Printf("Database initialized at %s", cfg.Database.Path)

	// Start the in-process event bus
	bus, err := events.NewEmbedded(cfg.Events.Subject)
	if err != nil {
		log.Fatalf("Failed to start event bus: %v", err)
	}
	defer bus.Close()

	// Create auth service
	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	if cfg.Auth.JWTSecret == "" {
		log.Printf("Warning: No JWT secret configured. Auth tokens will use an empty secret.")
	}

	// Create HTTP router
	router := api.NewRouter(store, bus, authService)
	router.StartEventFeed()

	// Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for signal or error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-serverErr:
		log.Fatalf("HTTP server error: %v", err)
	}

	// Sequential shutdown
	log.Println("Shutting down HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}

// CLI helper variables
var (
	baseURL = "http://localhost:8080"
	dbPath  string
)

// loadCLIConfigFromFlags loads config using pre-parsed flag values
func loadCLIConfigFromFlags(configPath, url string) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config from %s: %v\n", configPath, err)
		dbPath = "ronlog.db"
		if url != "" {
			baseURL = url
		}
		return nil
	}

	dbPath = cfg.Database.Path
	// Derive URL from config, but allow --url flag to override
	if url != "" {
		baseURL = url
	} else {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	}
	return cfg
}

func loadCLIConfig(args []string) (*config.Config, []string) {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the ronlog server")
	fs.Parse(args)

	cfg := loadCLIConfigFromFlags(*configPath, *url)
	return cfg, fs.Args()
}

// openCLIStore opens the database for commands that bypass the HTTP API
func openCLIStore() *storage.Store {
	store, err := storage.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	return store
}

// cmdGame handles game subcommands
func cmdGame(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: game subcommand required: add, get, remove\n")
		os.Exit(1)
	}

	subCmd := args[0]
	_, remaining := loadCLIConfig(args[1:])

	store := openCLIStore()
	defer store.Close()

	ctx := context.Background()

	var err error
	switch subCmd {
	case "add":
		err = cmdGameAdd(ctx, store, remaining)
	case "get":
		err = cmdGameGet(ctx, store, remaining)
	case "remove":
		err = cmdGameRemove(ctx, store, remaining)
	default:
		err = fmt.Errorf("unknown game command: %s (use: add, get, remove)", subCmd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdGameAdd(ctx context.Context, store *storage.Store, args []string) error {
	fs := flag.NewFlagSet("game add", flag.ExitOnError)
	gameID := fs.String("id", "", "game id (default: generated)")
	date := fs.String("date", "", "game date as unix:<seconds> (default: now)")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 6 || len(remaining)%2 != 0 {
		return fmt.Errorf("usage: ronlog game add [--id ID] [--date TS] <user> <score> [<user> <score> ...]")
	}

	var users []string
	var scores []int
	for i := 0; i < len(remaining); i += 2 {
		score, err := strconv.Atoi(remaining[i+1])
		if err != nil {
			return fmt.Errorf("invalid score %q for %s", remaining[i+1], remaining[i])
		}
		users = append(users, remaining[i])
		scores = append(scores, score)
	}

	id := *gameID
	if id == "" {
		id = "cli:" + uuid.NewString()
	}
	when := *date
	if when == "" {
		when = domain.UnixTimestamp(time.Now().Unix()).String()
	}

	record, err := domain.NewGameRecord(id, when, users, scores)
	if err != nil {
		return err
	}
	if err := store.InsertGame(ctx, record); err != nil {
		return err
	}

	fmt.Printf("Game %s recorded (winner: %s)\n", record.GameID, record.Winner())
	return nil
}

func cmdGameGet(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ronlog game get <game-id>")
	}

	record, err := store.GetGame(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Game:   %s\n", record.GameID)
	fmt.Printf("Played: %s\n", record.Date.Time().Format("2006-01-02 15:04"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPLAYER\tSCORE")
	fmt.Fprintln(w, "----\t------\t-----")
	for i, user := range record.Users {
		fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, user, record.FinalScores[i])
	}
	return w.Flush()
}

func cmdGameRemove(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ronlog game remove <game-id>")
	}

	if err := store.DeleteGame(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Game %s removed\n", args[0])
	return nil
}

func cmdGames(args []string) {
	fs := flag.NewFlagSet("games", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the ronlog server")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	remaining := fs.Args()
	if len(remaining) < 1 {
		fmt.Fprintf(os.Stderr, "Error: usage: ronlog games <user-id>\n")
		os.Exit(1)
	}
	userID := remaining[0]

	var scores []domain.UserScoreRecord
	if err := getJSON(fmt.Sprintf("/api/users/%s/games", userID), &scores); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(scores) == 0 {
		fmt.Printf("No games recorded for %s\n", userID)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GAME\tPLAYED\tRANK\tSCORE")
	fmt.Fprintln(w, "----\t------\t----\t-----")
	for _, s := range scores {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", s.GameID, s.Date.Time().Format("2006-01-02 15:04"), s.Rank, s.FinalScore)
	}
	w.Flush()
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the ronlog server")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	remaining := fs.Args()
	if len(remaining) < 1 {
		fmt.Fprintf(os.Stderr, "Error: usage: ronlog stats <user-id>\n")
		os.Exit(1)
	}
	userID := remaining[0]

	var stats domain.UserStatsRecord
	if err := getJSON(fmt.Sprintf("/api/users/%s/stats", userID), &stats); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Player:       %s\n", stats.UserID)
	fmt.Printf("Games played: %d\n", stats.GamesPlayed)
	fmt.Printf("Games won:    %d\n", stats.GamesWon)
	fmt.Printf("Average rank: %.2f\n", stats.AvgRank())
}

func cmdLeaderboard(args []string) {
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the ronlog server")
	sortBy := fs.String("sort", "games_won", "sort key: games_played, games_won, avg_rank")
	limit := fs.Int("top", 20, "number of top players to show")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var stats []domain.UserStatsRecord
	path := fmt.Sprintf("/api/stats/leaderboard?sort=%s&limit=%d", *sortBy, *limit)
	if err := getJSON(path, &stats); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPLAYER\tPLAYED\tWON\tAVG RANK")
	fmt.Fprintln(w, "----\t------\t------\t---\t--------")
	for i, s := range stats {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.2f\n", i+1, s.UserID, s.GamesPlayed, s.GamesWon, s.AvgRank())
	}
	w.Flush()
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	dir := fs.String("dir", ".", "output directory")
	compress := fs.Bool("gzip", false, "gzip the output files")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, "")

	store := openCLIStore()
	defer store.Close()

	ctx := context.Background()

	write := func(name string, export func(context.Context, io.Writer) error) error {
		path := filepath.Join(*dir, name)
		if *compress {
			path += ".gz"
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()

		var w io.Writer = f
		if *compress {
			gz := gzip.NewWriter(f)
			defer gz.Close()
			w = gz
		}
		if err := export(ctx, w); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}

	if err := write("scores.csv", store.ExportScoresCSV); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := write("stats.csv", store.ExportStatsCSV); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdFixStats(args []string) {
	fs := flag.NewFlagSet("fixstats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, "")

	store := openCLIStore()
	defer store.Close()

	if err := store.FixUserStats(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Stats table rebuilt from score rows")
}

// cmdUser handles user subcommands
func cmdUser(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: user subcommand required: add, remove, list, reset, admin\n")
		os.Exit(1)
	}

	subCmd := args[0]
	_, remaining := loadCLIConfig(args[1:])

	store := openCLIStore()
	defer store.Close()

	ctx := context.Background()

	switch subCmd {
	case "add":
		if err := cmdUserAdd(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "remove":
		if err := cmdUserRemove(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "list":
		if err := cmdUserList(ctx, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "reset":
		if err := cmdUserReset(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "admin":
		if err := cmdUserAdmin(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown user command: %s (use: add, remove, list, reset, admin)\n", subCmd)
		os.Exit(1)
	}
}

func cmdUserAdd(ctx context.Context, store *storage.Store, args []string) error {
	fs := flag.NewFlagSet("user add", flag.ExitOnError)
	isAdmin := fs.Bool("admin", false, "create as admin user")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 {
		return fmt.Errorf("usage: ronlog user add [--admin] <username>")
	}

	username := remaining[0]

	// Check if user already exists
	if _, err := store.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("user '%s' already exists", username)
	}

	password, err := promptPassword("Enter password: ")
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := store.CreateUser(ctx, username, hash, *isAdmin); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	roleStr := "user"
	if *isAdmin {
		roleStr = "admin"
	}
	fmt.Printf("User '%s' created successfully (role: %s)\n", username, roleStr)
	return nil
}

func cmdUserRemove(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ronlog user remove <username>")
	}
	username := args[0]

	if err := store.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	fmt.Printf("User '%s' removed\n", username)
	return nil
}

func cmdUserList(ctx context.Context, store *storage.Store) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tPWD_CHANGE\tLAST_LOGIN")
	fmt.Fprintln(w, "--------\t----\t----------\t----------")

	for _, user := range users {
		role := "user"
		if user.IsAdmin {
			role = "admin"
		}
		pwdChange := "no"
		if user.PasswordChangeRequired {
			pwdChange = "yes"
		}
		lastLogin := "never"
		if user.LastLogin != nil {
			lastLogin = user.LastLogin.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", user.Username, role, pwdChange, lastLogin)
	}
	return w.Flush()
}

func cmdUserReset(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ronlog user reset <username>")
	}
	username := args[0]

	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}

	password, err := promptPassword("Enter new password: ")
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := store.ResetUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	fmt.Printf("Password reset for '%s' (user will be required to change it on next login)\n", username)
	return nil
}

func cmdUserAdmin(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ronlog user admin <username>")
	}
	username := args[0]

	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}

	newAdminStatus := !user.IsAdmin
	if err := store.UpdateUserAdmin(ctx, user.ID, newAdminStatus); err != nil {
		return fmt.Errorf("failed to update admin status: %w", err)
	}

	if newAdminStatus {
		fmt.Printf("User '%s' is now an admin\n", username)
	} else {
		fmt.Printf("User '%s' is no longer an admin\n", username)
	}
	return nil
}

// promptPassword reads and confirms a password without echoing it
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	return string(password), nil
}

// getJSON fetches a JSON document from the running server
func getJSON(path string, target interface{}) error {
	url := baseURL + path
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
