// ABOUTME: Terminal rendering of the post feed and comment threads
// ABOUTME: Reprints a post only when it has been edited since it was shown

package display

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/2389/pairchat/internal/community"
)

// Posts prints the posts of a newest-first snapshot that are new or edited
// since the last call, oldest first, and returns how many it printed.
func (r *Renderer) Posts(posts []community.Post) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	printed := 0
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		if shown, ok := r.posts[p.ID]; ok && !p.UpdatedAt.After(shown) {
			continue
		}
		if err := r.post(p); err != nil {
			return printed, err
		}
		r.posts[p.ID] = p.UpdatedAt
		printed++
	}
	return printed, nil
}

// Comments prints the comments of an oldest-first snapshot that have not
// been printed yet and returns how many it printed.
func (r *Renderer) Comments(comments []community.Comment) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	printed := 0
	for _, c := range comments {
		if _, ok := r.seen[c.ID]; ok {
			continue
		}
		if err := r.comment(c); err != nil {
			return printed, err
		}
		r.seen[c.ID] = struct{}{}
		printed++
	}
	return printed, nil
}

func (r *Renderer) post(p community.Post) error {
	if _, err := r.stamp.Fprintf(r.w, "[%s] ", FormatDateIn(p.CreatedAt, r.loc)); err != nil {
		return err
	}
	if _, err := r.author(p.AuthorID).Fprint(r.w, p.AuthorName); err != nil {
		return err
	}
	if _, err := r.stamp.Fprintf(r.w, " (post %s)", p.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.w, ": %s", p.Text); err != nil {
		return err
	}
	if p.Edited() {
		if _, err := r.stamp.Fprint(r.w, " (edited)"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(r.w)
	return err
}

func (r *Renderer) comment(c community.Comment) error {
	if _, err := r.stamp.Fprintf(r.w, "  [%s] ", FormatDateIn(c.CreatedAt, r.loc)); err != nil {
		return err
	}
	if _, err := r.author(c.AuthorID).Fprint(r.w, c.AuthorName); err != nil {
		return err
	}
	_, err := fmt.Fprintf(r.w, ": %s\n", c.Text)
	return err
}

func (r *Renderer) author(id string) *color.Color {
	if id == r.self {
		return r.mine
	}
	return r.peer
}
