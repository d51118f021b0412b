// ABOUTME: Service ties profile, post and comment storage to validation
// ABOUTME: Safe for concurrent use; holds no state beyond the store

package community

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"github.com/2389/pairchat/internal/store"
)

// Length limits, in characters.
const (
	MaxDisplayNameLength = 100
	MaxBioLength         = 500
	MaxCareerLength      = 100
	MaxPostLength        = 4000
	MaxCommentLength     = 1000
)

// UnknownAuthor is shown for authors without a profile or display name.
const UnknownAuthor = "unknown user"

// Store defines what the service needs from storage.
type Store interface {
	store.ProfileStore
	store.PostStore
}

// Service implements profile, post and comment operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// New creates a Service. A nil logger uses slog.Default().
func New(s Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		logger: logger.With("component", "community"),
	}
}

// authors loads the profiles of the given user IDs, each looked up once.
func (s *Service) authors(ctx context.Context, ids []string) (map[string]*store.Profile, error) {
	return s.store.GetProfiles(ctx, lo.Uniq(ids))
}

// authorName returns the display name to show for p.
func authorName(p *store.Profile) string {
	if p == nil || p.DisplayName == "" {
		return UnknownAuthor
	}
	return p.DisplayName
}

func authorPhoto(p *store.Profile) string {
	if p == nil {
		return ""
	}
	return p.PhotoURL
}
