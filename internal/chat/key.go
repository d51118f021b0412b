// ABOUTME: Canonical pair keys and input validation for participants and text
// ABOUTME: PairKey is order independent so both sides map to one conversation

package chat

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/2389/pairchat/internal/store"
)

// Separator joins the two sorted identifiers of a pair key.
const Separator = "_"

// MaxTextLength is the longest message text accepted, in characters.
const MaxTextLength = 4000

var validate = validator.New()

// pairInput is validated before any store access.
type pairInput struct {
	SenderID   string `validate:"required,excludes=_"`
	ReceiverID string `validate:"required,excludes=_,nefield=SenderID"`
}

// textRule bounds message text by MaxTextLength.
var textRule = fmt.Sprintf("required,max=%d", MaxTextLength)

// PairKey returns the canonical key of the unordered pair {a, b}.
func PairKey(a, b string) string {
	pair := store.SortPair(a, b)
	return pair[0] + Separator + pair[1]
}

// ValidateParticipant rejects empty identifiers and identifiers that contain
// the pair key separator.
func ValidateParticipant(id string) error {
	if err := validate.Var(id, "required,excludes=_"); err != nil {
		return invalidInput(err)
	}
	return nil
}

func validatePair(senderID, receiverID string) error {
	if err := validate.Struct(pairInput{SenderID: senderID, ReceiverID: receiverID}); err != nil {
		return invalidInput(err)
	}
	return nil
}

// normalizeText trims the text and validates what remains.
func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if err := validate.VarWithKey("Text", text, textRule); err != nil {
		return "", invalidInput(err)
	}
	return text, nil
}
