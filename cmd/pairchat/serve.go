// ABOUTME: The serve and init commands
// ABOUTME: Wires config, store, resolver, and HTTP API together

package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/2389/pairchat/internal/api"
	"github.com/2389/pairchat/internal/auth"
	"github.com/2389/pairchat/internal/chat"
	"github.com/2389/pairchat/internal/community"
	"github.com/2389/pairchat/internal/config"
	"github.com/2389/pairchat/internal/store"
)

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	fmt.Println()

	logger.Info("starting pairchat",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	s, err := store.NewSQLiteStore(cfg.Database.Path,
		store.WithLogger(logger),
		store.WithFeedBufferSize(cfg.Subscriptions.BufferSize),
	)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}

	resolver := chat.New(s, chat.NewCache(), logger)
	srv := api.New(resolver, community.New(s, logger), verifier, api.Options{
		Addr:            cfg.Server.HTTPAddr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	return srv.Run(ctx)
}

func runInit() error {
	configPath := getConfigPath()
	if err := config.WriteDefault(configPath); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created config: %s\n", configPath)
	fmt.Println()
	fmt.Println("  Next:")
	fmt.Println("    pairchat serve                 # start the server")
	fmt.Println("    pairchat login --user alice    # sign in as alice")
	fmt.Println()
	return nil
}
