// ABOUTME: Store interface and data types for pairchat persistence
// ABOUTME: Defines conversations, messages, profiles, posts, comments and the store contract

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when a conversation for the same
// participant pair already exists
var ErrDuplicateConversation = errors.New("conversation already exists")

// ErrDuplicateProfile is returned when creating a profile whose user ID
// already has one
var ErrDuplicateProfile = errors.New("profile already exists")

// ErrClosed is returned by operations on a closed store and delivered to live
// subscriptions when the store shuts down
var ErrClosed = errors.New("store closed")

// Conversation is the record grouping all messages exchanged between exactly
// two participants. Participants are always kept in sorted order.
type Conversation struct {
	ID           string
	Participants [2]string
	CreatedAt    time.Time
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Message is a single immutable message within a conversation.
// ID, Seq and CreatedAt are assigned by the store on append.
type Message struct {
	ID             string
	ConversationID string
	Seq            int64
	SenderID       string
	Text           string
	CreatedAt      time.Time
}

// Profile is the public information a user shows to others.
type Profile struct {
	ID          string
	Email       string
	DisplayName string
	Bio         string
	Career      string
	PhotoURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfilePatch names the profile fields to change; nil fields are kept.
type ProfilePatch struct {
	Email       *string
	DisplayName *string
	Bio         *string
	Career      *string
	PhotoURL    *string
}

// Apply returns p with the patch's non-nil fields set.
func (pp ProfilePatch) Apply(p Profile) Profile {
	if pp.Email != nil {
		p.Email = *pp.Email
	}
	if pp.DisplayName != nil {
		p.DisplayName = *pp.DisplayName
	}
	if pp.Bio != nil {
		p.Bio = *pp.Bio
	}
	if pp.Career != nil {
		p.Career = *pp.Career
	}
	if pp.PhotoURL != nil {
		p.PhotoURL = *pp.PhotoURL
	}
	return p
}

// Post is a public post. UpdatedAt equals CreatedAt until the first edit.
type Post struct {
	ID        string
	AuthorID  string
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comment is a reply to a post.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}

// ConversationStore holds private conversations and their messages.
type ConversationStore interface {
	// FindConversation returns the conversation whose participant set is
	// exactly {a, b}, or ErrNotFound.
	FindConversation(ctx context.Context, a, b string) (*Conversation, error)

	// CreateConversation inserts a new conversation, assigning ID and
	// CreatedAt when empty. Returns ErrDuplicateConversation if one already
	// exists for the pair; callers use this as a create-if-absent primitive.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// AppendMessage adds a message to a conversation. The store assigns ID,
	// Seq and the server timestamp, then notifies live subscriptions.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages returns all messages of a conversation ordered by
	// CreatedAt ascending, ties broken by Seq.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// SubscribeMessages opens a live subscription delivering the full ordered
	// message list now and after every change.
	SubscribeMessages(ctx context.Context, conversationID string) (*Subscription[*Message], error)
}

// ProfileStore holds user profiles keyed by user ID.
type ProfileStore interface {
	// GetProfile returns the profile for userID, or ErrNotFound.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// GetProfiles returns the profiles that exist among userIDs, keyed by ID.
	// Missing IDs are simply absent from the map.
	GetProfiles(ctx context.Context, userIDs []string) (map[string]*Profile, error)

	// CreateProfile inserts p, setting CreatedAt and UpdatedAt. Returns
	// ErrDuplicateProfile if the user already has one.
	CreateProfile(ctx context.Context, p *Profile) error

	// UpdateProfile applies patch to an existing profile and returns the
	// result, or ErrNotFound.
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error)
}

// PostStore holds public posts and their comments.
type PostStore interface {
	// CreatePost inserts a post, assigning ID and timestamps.
	CreatePost(ctx context.Context, p *Post) error

	// GetPost returns a post by ID, or ErrNotFound.
	GetPost(ctx context.Context, postID string) (*Post, error)

	// UpdatePostText replaces a post's text and bumps UpdatedAt, or returns
	// ErrNotFound.
	UpdatePostText(ctx context.Context, postID, text string) (*Post, error)

	// ListPosts returns every post, newest first.
	ListPosts(ctx context.Context) ([]*Post, error)

	// SubscribePosts delivers the post list now and after every post or
	// profile change.
	SubscribePosts(ctx context.Context) (*Subscription[*Post], error)

	// CreateComment inserts a comment on an existing post, assigning ID and
	// CreatedAt. Returns ErrNotFound if the post does not exist.
	CreateComment(ctx context.Context, c *Comment) error

	// ListComments returns a post's comments, oldest first.
	ListComments(ctx context.Context, postID string) ([]*Comment, error)

	// SubscribeComments delivers a post's comments now and after every new
	// comment or profile change.
	SubscribeComments(ctx context.Context, postID string) (*Subscription[*Comment], error)
}

// Store is the complete document store.
type Store interface {
	ConversationStore
	ProfileStore
	PostStore

	// Close releases any resources held by the store and ends live
	// subscriptions with ErrClosed.
	Close() error
}

// Feed topics. Writes publish to the topic of what they changed.
const (
	postsTopic    = "posts"
	profilesTopic = "profiles"
)

func conversationTopic(id string) string { return "conversation:" + id }

func commentsTopic(postID string) string { return "comments:" + postID }

// SortPair returns the two identifiers in lexicographic order.
func SortPair(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}
