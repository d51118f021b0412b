// ABOUTME: Commands that talk to a running pairchat server
// ABOUTME: send, watch, and health

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/2389/pairchat/internal/api"
	"github.com/2389/pairchat/internal/client"
	"github.com/2389/pairchat/internal/config"
	"github.com/2389/pairchat/internal/display"
	"github.com/2389/pairchat/internal/session"
)

// signedInClient returns a client for the signed-in user.
func signedInClient(cfg *config.Config) (*client.Client, session.State, error) {
	emitter, err := openSession(cfg)
	if err != nil {
		return nil, session.State{}, err
	}
	s := emitter.Current()
	if !s.SignedIn() {
		return nil, s, errNotSignedIn
	}
	return client.New(cfg.Client.ServerURL, s.Token), s, nil
}

func runSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	to := fs.String("to", "", "user ID of the recipient")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *to == "" {
		return fmt.Errorf("--to flag is required")
	}
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is required")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	c, _, err := signedInClient(cfg)
	if err != nil {
		return err
	}

	msg, err := c.Send(ctx, *to, text)
	if err != nil {
		return describeClientError(err)
	}

	gray := color.New(color.FgHiBlack)
	gray.Printf("sent %s at %s\n", msg.ID, display.FormatDate(msg.CreatedAt))
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	peer := fs.String("peer", "", "user ID of the other participant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *peer == "" {
		return fmt.Errorf("--peer flag is required")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	c, s, err := signedInClient(cfg)
	if err != nil {
		return err
	}

	colored := isatty.IsTerminal(os.Stdout.Fd())
	r := display.NewRenderer(os.Stdout, s.UserID, colored)
	_ = r.Notice("watching conversation with %s (Ctrl-C to stop)", *peer)

	err = c.Watch(ctx, *peer, func(snap api.SnapshotEvent) error {
		_, err := r.Snapshot(snap.Messages)
		return err
	})
	if err != nil {
		_ = r.Notice("stream ended: %v", describeClientError(err))
		return err
	}
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	if err := client.New(cfg.Client.ServerURL, "").Health(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Println("healthy")
	return nil
}

func describeClientError(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("%w (run 'pairchat login' again)", err)
	}
	return err
}
