// ABOUTME: Entry point for coven-bot
// ABOUTME: Subcommands to run the bot, write a config and print the command registration

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-bot/internal/bot"
	"github.com/2389/coven-bot/internal/config"
	"github.com/2389/coven-bot/internal/platform/matrix"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                  _           _
  ___ _____   _____ _ __         | |__   ___ | |_
 / __/ _ \ \ / / _ \ '_ \ _____  | '_ \ / _ \| __|
| (_| (_) \ V /  __/ | | |_____| | |_) | (_) | |_
 \___\___/ \_/ \___|_| |_|       |_.__/ \___/ \__|
`

// getConfigPath returns the path to the bot config file.
// Priority: COVEN_BOT_CONFIG env var > XDG_CONFIG_HOME/coven/bot.yaml > ~/.config/coven/bot.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_BOT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "bot.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "bot.yaml")
}

func usage() {
	fmt.Println("Usage: coven-bot <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve      Connect to Matrix and run the bot")
	fmt.Println("  init       Create a new config file interactively")
	fmt.Println("  commands   Print the command registration payload as JSON")
	fmt.Println("  health     Check a running bot's status server")
	fmt.Println("  version    Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "commands":
		err = runCommands()
	case "health":
		err = runHealth(ctx)
	case "version", "--version", "-v":
		fmt.Println(version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("Database:   %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Prefix:     %s\n", cfg.Bot.CommandPrefix)
	if cfg.Server.HTTPAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:       %s\n", cfg.Server.HTTPAddr)
	}
	if cfg.Matrix.CryptoDatabase != "" {
		green.Print("    ▶ ")
		fmt.Println("Encryption: enabled")
	}
	fmt.Println()

	bridge, err := matrix.NewBridge(cfg.Matrix, cfg.Bot.CommandPrefix, logger)
	if err != nil {
		return fmt.Errorf("creating matrix bridge: %w", err)
	}
	if err := bridge.Login(ctx); err != nil {
		_ = bridge.Close()
		return fmt.Errorf("matrix login: %w", err)
	}

	b, err := bot.New(ctx, cfg, bridge, logger)
	if err != nil {
		_ = bridge.Close()
		return fmt.Errorf("creating bot: %w", err)
	}

	logger.Info("starting coven-bot",
		"config", configPath,
		"user_id", bridge.UserID().String(),
		"commands", b.Tree().Len(),
	)
	return b.Run(ctx)
}

// runCommands prints the registration payload. A missing config file means
// defaults; the payload does not depend on Matrix settings.
func runCommands() error {
	cfg, err := config.Load(getConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cmds, err := bot.Registration(cfg)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cmds)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is not configured")
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("not ready: status %d", resp.StatusCode)
	}
	fmt.Println("ready")
	return nil
}

func runInit() error {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	reader := bufio.NewReader(os.Stdin)

	cyan.Print(banner)
	fmt.Println("    Interactive Setup")
	fmt.Println("    -----------------")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", getConfigPath())
	if _, err := os.Stat(outputFile); err == nil {
		yellow.Printf("    Config already exists at %s\n", outputFile)
		if !yes(prompt(reader, "Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.Default()

	fmt.Println("\n--- Matrix ---")
	cfg.Matrix.Homeserver = prompt(reader, "Homeserver URL", "https://matrix.org")
	if token := prompt(reader, "Access token (leave empty to log in with a password)", ""); token != "" {
		cfg.Matrix.AccessToken = token
		cfg.Matrix.UserID = prompt(reader, "User ID (@name:server)", "")
	} else {
		cfg.Matrix.Username = prompt(reader, "Username", "")
		cfg.Matrix.Password = prompt(reader, "Password", "")
	}
	if rooms := prompt(reader, "Allowed rooms, comma separated (empty for all)", ""); rooms != "" {
		for _, r := range strings.Split(rooms, ",") {
			cfg.Matrix.AllowedRooms = append(cfg.Matrix.AllowedRooms, strings.TrimSpace(r))
		}
	}
	if yes(prompt(reader, "Enable end-to-end encryption?", "no")) {
		cfg.Matrix.CryptoDatabase = filepath.Join(filepath.Dir(cfg.Database.Path), "matrix-crypto.db")
		cfg.Matrix.RecoveryKey = prompt(reader, "Recovery key (optional)", "")
	}

	fmt.Println("\n--- Bot ---")
	cfg.Bot.Name = prompt(reader, "Bot name", cfg.Bot.Name)
	cfg.Bot.CommandPrefix = prompt(reader, "Command prefix", cfg.Bot.CommandPrefix)
	if owners := prompt(reader, "Owner user IDs, comma separated", ""); owners != "" {
		for _, o := range strings.Split(owners, ",") {
			cfg.Bot.Owners = append(cfg.Bot.Owners, strings.TrimSpace(o))
		}
	}

	fmt.Println("\n--- Server ---")
	cfg.Server.HTTPAddr = prompt(reader, "Status HTTP address (empty to disable)", "localhost:8090")
	cfg.Database.Path = prompt(reader, "SQLite database path", cfg.Database.Path)

	fmt.Println("\n--- Logging ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid answers: %w", err)
	}
	if err := config.WriteYAML(outputFile, cfg); err != nil {
		return err
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the bot:")
	fmt.Printf("  coven-bot serve\n")
	return nil
}

func yes(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "y" || a == "yes"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
