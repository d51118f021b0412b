// ABOUTME: Terminal rendering of conversation snapshots
// ABOUTME: Prints only messages not shown before, colored by who sent them

package display

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/2389/pairchat/internal/chat"
)

// Renderer writes conversation messages to a terminal. Each snapshot carries
// the whole conversation; Renderer remembers what it already printed and
// writes only the new tail.
type Renderer struct {
	mu   sync.Mutex
	w    io.Writer
	self string
	loc  *time.Location
	seen map[string]struct{}
	// posts maps a printed post to the UpdatedAt it was printed with.
	posts map[string]time.Time

	stamp *color.Color
	mine  *color.Color
	peer  *color.Color
	warn  *color.Color
}

// NewRenderer creates a renderer for the user self. With colored false, all
// output is plain text.
func NewRenderer(w io.Writer, self string, colored bool) *Renderer {
	r := &Renderer{
		w:     w,
		self:  self,
		loc:   time.Local,
		seen:  make(map[string]struct{}),
		posts: make(map[string]time.Time),
		stamp: color.New(color.FgHiBlack),
		mine:  color.New(color.FgGreen, color.Bold),
		peer:  color.New(color.FgCyan, color.Bold),
		warn:  color.New(color.FgYellow),
	}
	if !colored {
		for _, c := range []*color.Color{r.stamp, r.mine, r.peer, r.warn} {
			c.DisableColor()
		}
	}
	return r
}

// SetLocation changes the time zone timestamps are shown in.
func (r *Renderer) SetLocation(loc *time.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loc = loc
}

// Snapshot prints the messages of msgs that have not been printed yet and
// returns how many it printed.
func (r *Renderer) Snapshot(msgs []chat.Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	printed := 0
	for _, m := range msgs {
		if _, ok := r.seen[m.ID]; ok {
			continue
		}
		if err := r.line(m); err != nil {
			return printed, err
		}
		r.seen[m.ID] = struct{}{}
		printed++
	}
	return printed, nil
}

// Notice prints an out-of-band status line such as a connection error.
func (r *Renderer) Notice(format string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.warn.Fprintf(r.w, "-- "+format+"\n", args...)
	return err
}

func (r *Renderer) line(m chat.Message) error {
	who := r.peer
	name := m.SenderID
	if m.SenderID == r.self {
		who = r.mine
		name = "you"
	}

	if _, err := r.stamp.Fprintf(r.w, "[%s] ", FormatDateIn(m.CreatedAt, r.loc)); err != nil {
		return err
	}
	if _, err := who.Fprint(r.w, name); err != nil {
		return err
	}
	_, err := fmt.Fprintf(r.w, ": %s\n", m.Text)
	return err
}
