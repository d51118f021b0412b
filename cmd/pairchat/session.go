// ABOUTME: Commands that manage the local sign-in session
// ABOUTME: token, login, logout, and whoami

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/2389/pairchat/internal/auth"
	"github.com/2389/pairchat/internal/chat"
	"github.com/2389/pairchat/internal/client"
	"github.com/2389/pairchat/internal/community"
	"github.com/2389/pairchat/internal/config"
	"github.com/2389/pairchat/internal/display"
	"github.com/2389/pairchat/internal/session"
)

var errNotSignedIn = errors.New("not signed in (run 'pairchat login --user ID')")

func openSession(cfg *config.Config) (*session.Emitter, error) {
	return session.NewEmitter(session.NewFilePersister(cfg.Client.SessionPath), nil)
}

func issueToken(cfg *config.Config, userID, email string) (string, error) {
	if err := chat.ValidateParticipant(userID); err != nil {
		return "", err
	}
	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("creating JWT verifier: %w", err)
	}
	return verifier.Generate(userID, email, cfg.Auth.TokenTTL)
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.String("user", "", "user ID to issue the token for")
	email := fs.String("email", "", "email claim")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("--user flag is required")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	token, err := issueToken(cfg, *userID, *email)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	userID := fs.String("user", "", "user ID to sign in as")
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("--user flag is required")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	token, err := issueToken(cfg, *userID, *email)
	if err != nil {
		return err
	}

	emitter, err := openSession(cfg)
	if err != nil {
		return err
	}

	// Profile fields belong to the previous user.
	if cur := emitter.Current(); cur.SignedIn() && cur.UserID != *userID {
		if err := emitter.SignOut(); err != nil {
			return err
		}
	}

	green := color.New(color.FgGreen)
	initial := true
	dispose := emitter.Subscribe(func(s session.State) {
		if initial {
			initial = false
			return
		}
		if s.SignedIn() && s.UserID == *userID {
			green.Printf("  ✓ Signed in as %s\n", s.UserID)
		}
	})
	defer dispose()

	patch := session.Patch{
		UserID: lo.ToPtr(*userID),
		Token:  lo.ToPtr(token),
	}
	profile, err := syncProfile(ctx, cfg, *userID, token, *email, *name)
	if err != nil {
		color.New(color.FgYellow).Printf("  ! Profile not loaded: %v\n", err)
	} else {
		mergeProfile(&patch, profile)
	}
	if *email != "" {
		patch.Email = email
	}
	if *name != "" {
		patch.DisplayName = name
	}
	return emitter.Update(patch)
}

// loginProfileTimeout bounds the profile lookup done while signing in.
const loginProfileTimeout = 5 * time.Second

// syncProfile fetches userID's profile from the server, creating it from the
// login flags when there is none yet.
func syncProfile(ctx context.Context, cfg *config.Config, userID, token, email, name string) (community.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, loginProfileTimeout)
	defer cancel()

	c := client.New(cfg.Client.ServerURL, token)
	profile, err := c.GetProfile(ctx, userID)
	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		return profile, err
	}

	var edit community.ProfileEdit
	if email != "" {
		edit.Email = &email
	}
	if name != "" {
		edit.DisplayName = &name
	}
	return c.CreateProfile(ctx, edit)
}

// mergeProfile copies the server profile's non-empty fields into patch.
func mergeProfile(patch *session.Patch, p community.Profile) {
	set := func(dst **string, v string) {
		if v != "" {
			*dst = lo.ToPtr(v)
		}
	}
	set(&patch.Email, p.Email)
	set(&patch.DisplayName, p.DisplayName)
	set(&patch.Bio, p.Bio)
	set(&patch.Career, p.Career)
	set(&patch.PhotoURL, p.PhotoURL)
}

func runLogout() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	emitter, err := openSession(cfg)
	if err != nil {
		return err
	}
	if !emitter.Current().SignedIn() {
		fmt.Println("Not signed in.")
		return nil
	}
	if err := emitter.SignOut(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func runWhoami() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	emitter, err := openSession(cfg)
	if err != nil {
		return err
	}

	s := emitter.Current()
	if !s.SignedIn() {
		return errNotSignedIn
	}

	cyan := color.New(color.FgCyan)
	cyan.Println("  Session")
	cyan.Println("  -------")
	fmt.Printf("  User:    %s\n", s.UserID)
	if s.DisplayName != "" {
		fmt.Printf("  Name:    %s\n", s.DisplayName)
	}
	if s.Email != "" {
		fmt.Printf("  Email:   %s\n", s.Email)
	}
	if s.Bio != "" {
		fmt.Printf("  Bio:     %s\n", s.Bio)
	}
	if s.Career != "" {
		fmt.Printf("  Career:  %s\n", s.Career)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err == nil {
		if _, verr := verifier.Verify(s.Token); verr != nil {
			color.New(color.FgYellow).Fprintf(os.Stdout, "  Token:   %s\n", describeTokenError(verr))
		} else {
			fmt.Println("  Token:   valid")
		}
	}
	if info, err := os.Stat(cfg.Client.SessionPath); err == nil {
		fmt.Printf("  Saved:   %s\n", display.FormatDate(info.ModTime()))
	}
	return nil
}

func describeTokenError(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired (run 'pairchat login' again)"
	default:
		return "invalid (" + err.Error() + ")"
	}
}
