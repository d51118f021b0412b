// ABOUTME: Commands for profiles, posts, and comments
// ABOUTME: profile, post, posts, comment, and comments

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/samber/lo"

	"github.com/2389/pairchat/internal/api"
	"github.com/2389/pairchat/internal/client"
	"github.com/2389/pairchat/internal/community"
	"github.com/2389/pairchat/internal/display"
	"github.com/2389/pairchat/internal/session"
)

func runProfile(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "edit" {
		return runProfileEdit(ctx, args[1:])
	}

	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	userID := fs.String("user", "", "user ID to show (default: you)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	c, s, err := signedInClient(cfg)
	if err != nil {
		return err
	}
	if *userID == "" {
		*userID = s.UserID
	}

	profile, err := c.GetProfile(ctx, *userID)
	if err != nil {
		return describeClientError(err)
	}
	printProfile(profile)
	return nil
}

func runProfileEdit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile edit", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "display name")
	bio := fs.String("bio", "", "short bio")
	career := fs.String("career", "", "career")
	photo := fs.String("photo-url", "", "profile photo URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only flags given on the command line are changed; an empty value clears.
	var edit community.ProfileEdit
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "email":
			edit.Email = email
		case "name":
			edit.DisplayName = name
		case "bio":
			edit.Bio = bio
		case "career":
			edit.Career = career
		case "photo-url":
			edit.PhotoURL = photo
		}
	})
	if edit.IsEmpty() {
		return fmt.Errorf("nothing to change (use --email, --name, --bio, --career, or --photo-url)")
	}

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
	c := client.New(cfg.Client.ServerURL, s.Token)

	profile, err := c.UpdateProfile(ctx, s.UserID, edit)
	if err != nil {
		return describeClientError(err)
	}

	err = emitter.Update(session.Patch{
		Email:       lo.ToPtr(profile.Email),
		DisplayName: lo.ToPtr(profile.DisplayName),
		Bio:         lo.ToPtr(profile.Bio),
		Career:      lo.ToPtr(profile.Career),
		PhotoURL:    lo.ToPtr(profile.PhotoURL),
	})
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Println("  ✓ Profile updated")
	printProfile(profile)
	return nil
}

func printProfile(p community.Profile) {
	cyan := color.New(color.FgCyan)
	cyan.Println("  Profile")
	cyan.Println("  -------")
	fmt.Printf("  User:    %s\n", p.ID)
	fmt.Printf("  Name:    %s\n", lo.Ternary(p.DisplayName != "", p.DisplayName, community.UnknownAuthor))
	if p.Email != "" {
		fmt.Printf("  Email:   %s\n", p.Email)
	}
	if p.Bio != "" {
		fmt.Printf("  Bio:     %s\n", p.Bio)
	}
	if p.Career != "" {
		fmt.Printf("  Career:  %s\n", p.Career)
	}
	if p.PhotoURL != "" {
		fmt.Printf("  Photo:   %s\n", p.PhotoURL)
	}
	fmt.Printf("  Since:   %s\n", display.FormatDate(p.CreatedAt))
}

func runPost(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "edit" {
		return runPostEdit(ctx, args[1:])
	}

	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("post text is required")
	}

	c, err := signedIn()
	if err != nil {
		return err
	}
	post, err := c.CreatePost(ctx, text)
	if err != nil {
		return describeClientError(err)
	}

	gray := color.New(color.FgHiBlack)
	gray.Printf("posted %s at %s\n", post.ID, display.FormatDate(post.CreatedAt))
	return nil
}

func runPostEdit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("post edit", flag.ContinueOnError)
	id := fs.String("id", "", "ID of the post to edit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id flag is required")
	}
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("post text is required")
	}

	c, err := signedIn()
	if err != nil {
		return err
	}
	post, err := c.UpdatePost(ctx, *id, text)
	if err != nil {
		return describeClientError(err)
	}

	gray := color.New(color.FgHiBlack)
	gray.Printf("edited %s at %s\n", post.ID, display.FormatDate(post.UpdatedAt))
	return nil
}

func runPosts(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	c, s, err := signedInClient(cfg)
	if err != nil {
		return err
	}

	r := display.NewRenderer(os.Stdout, s.UserID, isatty.IsTerminal(os.Stdout.Fd()))
	_ = r.Notice("following posts (Ctrl-C to stop)")

	err = c.WatchPosts(ctx, func(snap api.PostsEvent) error {
		_, err := r.Posts(snap.Posts)
		return err
	})
	if err != nil {
		_ = r.Notice("stream ended: %v", describeClientError(err))
		return err
	}
	return nil
}

func runComment(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("comment", flag.ContinueOnError)
	postID := fs.String("post", "", "ID of the post to comment on")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *postID == "" {
		return fmt.Errorf("--post flag is required")
	}
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("comment text is required")
	}

	c, err := signedIn()
	if err != nil {
		return err
	}
	comment, err := c.CreateComment(ctx, *postID, text)
	if err != nil {
		return describeClientError(err)
	}

	gray := color.New(color.FgHiBlack)
	gray.Printf("commented %s at %s\n", comment.ID, display.FormatDate(comment.CreatedAt))
	return nil
}

func runComments(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("comments", flag.ContinueOnError)
	postID := fs.String("post", "", "ID of the post to follow")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *postID == "" {
		return fmt.Errorf("--post flag is required")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	c, s, err := signedInClient(cfg)
	if err != nil {
		return err
	}

	r := display.NewRenderer(os.Stdout, s.UserID, isatty.IsTerminal(os.Stdout.Fd()))
	_ = r.Notice("following comments on %s (Ctrl-C to stop)", *postID)

	err = c.WatchComments(ctx, *postID, func(snap api.CommentsEvent) error {
		_, err := r.Comments(snap.Comments)
		return err
	})
	if err != nil {
		_ = r.Notice("stream ended: %v", describeClientError(err))
		return err
	}
	return nil
}

// signedIn loads the config and returns a client for the signed-in user.
func signedIn() (*client.Client, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	c, _, err := signedInClient(cfg)
	return c, err
}
