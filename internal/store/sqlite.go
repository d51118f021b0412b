// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Opens the database, creates the schema, and persists conversations and messages

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/pairchat/internal/feed"

	_ "modernc.org/sqlite"
)

// timeFormat is fixed-width so stored timestamps sort lexicographically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Option configures a store.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	clock      func() time.Time
	feedBuffer int
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock overrides the server clock used for message timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithFeedBufferSize sets the per-subscription change buffer.
func WithFeedBufferSize(n int) Option {
	return func(o *options) { o.feedBuffer = n }
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db      *sql.DB
	changes *feed.Broadcaster
	clock   func() time.Time
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)
	logger := o.logger.With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps the pragmas
	// below in effect for every statement.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		changes: feed.NewBroadcaster(o.feedBuffer, o.logger),
		clock:   o.clock,
		logger:  logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id            TEXT PRIMARY KEY,
			participant_a TEXT NOT NULL,
			participant_b TEXT NOT NULL,
			created_at    TEXT NOT NULL,

			CHECK (participant_a <= participant_b)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_pair
			ON conversations(participant_a, participant_b);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq             INTEGER NOT NULL,
			sender_id       TEXT NOT NULL,
			text            TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_conversation_seq
			ON messages(conversation_id, seq);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_at);

		CREATE TABLE IF NOT EXISTS profiles (
			user_id      TEXT PRIMARY KEY,
			email        TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			bio          TEXT NOT NULL DEFAULT '',
			career       TEXT NOT NULL DEFAULT '',
			photo_url    TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			author_id  TEXT NOT NULL,
			text       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_posts_created
			ON posts(created_at);

		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			post_id    TEXT NOT NULL,
			author_id  TEXT NOT NULL,
			text       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (post_id) REFERENCES posts(id)
		);

		CREATE INDEX IF NOT EXISTS idx_comments_post_created
			ON comments(post_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close ends live subscriptions and closes the database connection
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.logger.Info("closing SQLite store")
	s.changes.Close()
	return s.db.Close()
}

func (s *SQLiteStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// FindConversation looks up the conversation for the participant pair.
// Returns ErrNotFound if none exists.
func (s *SQLiteStore) FindConversation(ctx context.Context, a, b string) (*Conversation, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	pair := SortPair(a, b)
	query := `
		SELECT id, participant_a, participant_b, created_at
		FROM conversations
		WHERE participant_a = ? AND participant_b = ?
		LIMIT 1
	`

	var conv Conversation
	var createdAtStr string
	err := s.db.QueryRowContext(ctx, query, pair[0], pair[1]).Scan(
		&conv.ID,
		&conv.Participants[0],
		&conv.Participants[1],
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	conv.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &conv, nil
}

// CreateConversation inserts a conversation. The UNIQUE index on the sorted
// participant columns makes this a create-if-absent: a second insert for the
// same pair returns ErrDuplicateConversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if s.isClosed() {
		return ErrClosed
	}

	conv.Participants = SortPair(conv.Participants[0], conv.Participants[1])
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = s.clock()
	}
	conv.CreatedAt = conv.CreatedAt.UTC()

	query := `
		INSERT INTO conversations (id, participant_a, participant_b, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		conv.ID,
		conv.Participants[0],
		conv.Participants[1],
		conv.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateConversation
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation",
		"id", conv.ID,
		"participant_a", conv.Participants[0],
		"participant_b", conv.Participants[1])
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// violation. CHECK, NOT NULL and FOREIGN KEY failures are not.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// AppendMessage inserts a message inside a transaction that assigns the next
// sequence number and a timestamp no earlier than the previous message's, so
// created_at is non-decreasing in seq order.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) (err error) {
	if s.isClosed() {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, msg.ConversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking conversation: %w", err)
	}

	var lastSeq int64
	var lastCreated sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT seq, created_at FROM messages
		WHERE conversation_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, msg.ConversationID).Scan(&lastSeq, &lastCreated)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading last message: %w", err)
	}

	now := s.clock().UTC()
	if lastCreated.Valid {
		prev, parseErr := time.Parse(timeFormat, lastCreated.String)
		if parseErr != nil {
			err = fmt.Errorf("parsing last created_at: %w", parseErr)
			return err
		}
		if now.Before(prev) {
			now = prev
		}
	}

	msg.ID = uuid.New().String()
	msg.Seq = lastSeq + 1
	msg.CreatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, seq, sender_id, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		msg.ID,
		msg.ConversationID,
		msg.Seq,
		msg.SenderID,
		msg.Text,
		msg.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("appended message",
		"id", msg.ID,
		"conversation_id", msg.ConversationID,
		"seq", msg.Seq)

	topic := conversationTopic(msg.ConversationID)
	s.changes.Publish(topic, feed.Change{Topic: topic, ID: msg.ID})
	return nil
}

// ListMessages returns every message of a conversation in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	query := `
		SELECT id, conversation_id, seq, sender_id, text, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*Message, 0)
	for rows.Next() {
		var msg Message
		var createdAtStr string

		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Seq, &msg.SenderID, &msg.Text, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// SubscribeMessages opens a live subscription on a conversation.
func (s *SQLiteStore) SubscribeMessages(ctx context.Context, conversationID string) (*Subscription[*Message], error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	topic := conversationTopic(conversationID)
	list := func(ctx context.Context) ([]*Message, error) {
		return s.ListMessages(ctx, conversationID)
	}
	return newSubscription(ctx, topic, s.changes, []string{topic}, list, s.logger), nil
}

// now returns the store clock in UTC.
func (s *SQLiteStore) now() time.Time {
	return s.clock().UTC()
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", v, err)
	}
	return t, nil
}
