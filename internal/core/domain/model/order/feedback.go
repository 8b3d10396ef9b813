package order

import (
	"errors"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

var ErrFeedbackIsNotConstructed = errors.New("Feedback must be created via NewFeedback constructor")

// Reaction is a one-tap tag a customer can attach to feedback.
type Reaction string

const (
	FastDelivery   Reaction = "fast_delivery"
	FriendlyDriver Reaction = "friendly_driver"
	TastyFood      Reaction = "tasty_food"
	GoodPackaging  Reaction = "good_packaging"
	GoodValue      Reaction = "good_value"
)

// Reactions lists the accepted reactions.
func Reactions() []Reaction {
	return []Reaction{FastDelivery, FriendlyDriver, TastyFood, GoodPackaging, GoodValue}
}

func (r Reaction) Validate() error {
	if !slices.Contains(Reactions(), r) {
		return errs.NewValueIsInvalidErrorWithCause("reaction", fmt.Errorf("%q is not a known reaction", string(r)))
	}
	return nil
}

// Feedback is the customer's write-once review of a received order.
type Feedback struct {
	rating      int
	comment     string
	reactions   []Reaction
	submittedAt time.Time
	guard       guard.ConstructorGuard
}

// NewFeedback validates rating, comment and reactions. Duplicate reactions
// collapse into a set kept in Reactions() order.
func NewFeedback(rating int, comment string, reactions []Reaction, submittedAt time.Time) (Feedback, error) {
	f := Feedback{guard: guard.NewConstructorGuard(), submittedAt: submittedAt}

	if err := errors.Join(
		f.setRating(rating),
		f.setComment(comment),
		f.setReactions(reactions),
	); err != nil {
		return Feedback{}, err
	}

	return f, nil
}

func (f *Feedback) setRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return errs.NewValueIsOutOfRangeError("rating", rating, MinRating, MaxRating)
	}
	f.rating = rating
	return nil
}

func (f *Feedback) setComment(comment string) error {
	if n := utf8.RuneCountInString(comment); n > MaxCommentLength {
		return errs.NewValueIsOutOfRangeError("comment length", n, 0, MaxCommentLength)
	}
	f.comment = comment
	return nil
}

func (f *Feedback) setReactions(reactions []Reaction) error {
	var errList []error
	for _, r := range reactions {
		errList = append(errList, r.Validate())
	}
	if err := errors.Join(errList...); err != nil {
		return err
	}

	set := make([]Reaction, 0, len(reactions))
	for _, r := range Reactions() {
		if slices.Contains(reactions, r) {
			set = append(set, r)
		}
	}
	f.reactions = set
	return nil
}

func (f Feedback) Rating() int {
	return f.rating
}

func (f Feedback) Comment() string {
	return f.comment
}

func (f Feedback) Reactions() []Reaction {
	return slices.Clone(f.reactions)
}

func (f Feedback) SubmittedAt() time.Time {
	return f.submittedAt
}

func (f Feedback) Validate() error {
	return f.guard.Validate(ErrFeedbackIsNotConstructed)
}
