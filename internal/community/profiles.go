// ABOUTME: Profile lookups, creation and edits
// ABOUTME: Edits change only the fields that are present

package community

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/2389/pairchat/internal/store"
)

// Profile is a user's public information.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	Career      string    `json:"career"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileEdit carries the profile fields to set. Nil fields are left alone;
// an empty string clears the field.
type ProfileEdit struct {
	Email       *string `json:"email,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Career      *string `json:"career,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

// IsEmpty reports whether the edit changes nothing.
func (e ProfileEdit) IsEmpty() bool {
	return e.Email == nil && e.DisplayName == nil && e.Bio == nil && e.Career == nil && e.PhotoURL == nil
}

// normalize trims every present field and validates the result.
func (e ProfileEdit) normalize() (ProfileEdit, error) {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	out := ProfileEdit{
		Email:       trim(e.Email),
		DisplayName: trim(e.DisplayName),
		Bio:         trim(e.Bio),
		Career:      trim(e.Career),
		PhotoURL:    trim(e.PhotoURL),
	}
	fields := []struct {
		key   string
		value *string
		rule  string
	}{
		{"email", out.Email, "omitempty,email,max=254"},
		{"display_name", out.DisplayName, fmt.Sprintf("omitempty,max=%d", MaxDisplayNameLength)},
		{"bio", out.Bio, fmt.Sprintf("omitempty,max=%d", MaxBioLength)},
		{"career", out.Career, fmt.Sprintf("omitempty,max=%d", MaxCareerLength)},
		{"photo_url", out.PhotoURL, "omitempty,url,max=2048"},
	}

	var errs validator.ValidationErrors
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := validate.VarWithKey(f.key, *f.value, f.rule); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return ProfileEdit{}, invalidInput(err)
			}
			errs = append(errs, verrs...)
		}
	}
	if len(errs) > 0 {
		return ProfileEdit{}, invalidInput(errs)
	}
	return out, nil
}

func (e ProfileEdit) patch() store.ProfilePatch {
	return store.ProfilePatch{
		Email:       e.Email,
		DisplayName: e.DisplayName,
		Bio:         e.Bio,
		Career:      e.Career,
		PhotoURL:    e.PhotoURL,
	}
}

func validateUserID(userID string) error {
	if err := validate.VarWithKey("user_id", userID, "required"); err != nil {
		return invalidInput(err)
	}
	return nil
}

// GetProfile returns the profile of userID. A missing profile is reported as
// store.ErrNotFound.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	if err := validateUserID(userID); err != nil {
		return Profile{}, err
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("getting profile: %w", err)
	}
	return toProfile(p), nil
}

// CreateProfile creates userID's profile from the fields in edit. An
// existing profile is never overwritten; store.ErrDuplicateProfile is
// returned instead.
func (s *Service) CreateProfile(ctx context.Context, userID string, edit ProfileEdit) (Profile, error) {
	if err := validateUserID(userID); err != nil {
		return Profile{}, err
	}
	edit, err := edit.normalize()
	if err != nil {
		return Profile{}, err
	}

	p := edit.patch().Apply(store.Profile{ID: userID})
	if err := s.store.CreateProfile(ctx, &p); err != nil {
		return Profile{}, fmt.Errorf("creating profile: %w", err)
	}

	s.logger.Info("profile created", "user_id", userID)
	return toProfile(&p), nil
}

// EditProfile changes the present fields of userID's profile.
func (s *Service) EditProfile(ctx context.Context, userID string, edit ProfileEdit) (Profile, error) {
	if err := validateUserID(userID); err != nil {
		return Profile{}, err
	}
	if edit.IsEmpty() {
		return Profile{}, fmt.Errorf("%w: no fields to change", ErrInvalidInput)
	}
	edit, err := edit.normalize()
	if err != nil {
		return Profile{}, err
	}

	p, err := s.store.UpdateProfile(ctx, userID, edit.patch())
	if err != nil {
		return Profile{}, fmt.Errorf("editing profile: %w", err)
	}

	s.logger.Debug("profile edited", "user_id", userID)
	return toProfile(p), nil
}

func toProfile(p *store.Profile) Profile {
	return Profile{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		Career:      p.Career,
		PhotoURL:    p.PhotoURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
