// ABOUTME: Entry point for the pairchat server and command-line client
// ABOUTME: Dispatches subcommands and resolves config locations

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/2389/pairchat/internal/config"
)

// Version is set at build time.
var version = "dev"

const banner = `
             _           _           _
 _ __   __ _(_)_ __ ___| |__   __ _| |_
| '_ \ / _' | | '__/ __| '_ \ / _' | __|
| |_) | (_| | | | | (__| | | | (_| | |_
| .__/ \__,_|_|_|  \___|_| |_|\__,_|\__|
|_|
`

// getConfigPath returns the path to the pairchat config file.
// Priority: PAIRCHAT_CONFIG env var > XDG_CONFIG_HOME/pairchat/config.yaml > ~/.config/pairchat/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PAIRCHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "pairchat", "config.yaml")
}

func loadConfig() (*config.Config, string, error) {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, configPath, fmt.Errorf("no config at %s (run 'pairchat init' first)", configPath)
		}
		return nil, configPath, fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func usage() {
	fmt.Println("Usage: pairchat <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                        Start the pairchat server")
	fmt.Println("  init                         Write a default config file")
	fmt.Println("  token --user ID              Issue an access token")
	fmt.Println("  login --user ID [--email E]  Sign in on this machine")
	fmt.Println("  logout                       Sign out")
	fmt.Println("  whoami                       Show the signed-in user")
	fmt.Println("  send --to ID TEXT            Send a private message")
	fmt.Println("  watch --peer ID              Follow a conversation live")
	fmt.Println("  profile [--user ID]          Show a profile (default: yours)")
	fmt.Println("  profile edit [--name N] [--bio B] [--career C] [--email E] [--photo-url U]")
	fmt.Println("                               Change your profile")
	fmt.Println("  post TEXT                    Publish a post")
	fmt.Println("  post edit --id ID TEXT       Edit one of your posts")
	fmt.Println("  posts                        Follow the post feed live")
	fmt.Println("  comment --post ID TEXT       Comment on a post")
	fmt.Println("  comments --post ID           Follow a post's comments live")
	fmt.Println("  health                       Check server health")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// A missing .env file is fine; values may come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: reading .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "token":
		err = runToken(args)
	case "login":
		err = runLogin(ctx, args)
	case "logout":
		err = runLogout()
	case "whoami":
		err = runWhoami()
	case "send":
		err = runSend(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	case "profile":
		err = runProfile(ctx, args)
	case "post":
		err = runPost(ctx, args)
	case "posts":
		err = runPosts(ctx)
	case "comment":
		err = runComment(ctx, args)
	case "comments":
		err = runComments(ctx, args)
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
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
