package live

import (
	"fmt"

	"github.com/eventup/live/go/internal/models"
)

// MergePolicy decides where an updated entry lands in its collection
type MergePolicy string

const (
	// MergeAppend removes the stale entry and appends the update at the end
	MergeAppend MergePolicy = "append"
	// MergeInPlace replaces the stale entry at its original position
	MergeInPlace MergePolicy = "in_place"
)

// ParseMergePolicy validates a configured policy name. Empty selects MergeAppend.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(s) {
	case "", MergeAppend:
		return MergeAppend, nil
	case MergeInPlace:
		return MergeInPlace, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q", s)
	}
}

// MergePoll applies a pushed poll with the append policy
func MergePoll(current []models.Poll, updated models.Poll) []models.Poll {
	return MergeAppend.MergePoll(current, updated)
}

// MergeQuestion applies a pushed question with the append policy
func MergeQuestion(current []models.Question, updated models.Question) []models.Question {
	return MergeAppend.MergeQuestion(current, updated)
}

// MergePoll returns a new collection in which updated is the only entry with its ID.
// current is not modified.
func (p MergePolicy) MergePoll(current []models.Poll, updated models.Poll) []models.Poll {
	return mergeByID(current, updated, func(poll models.Poll) string { return poll.ID }, p == MergeInPlace)
}

// MergeQuestion returns a new collection in which updated is the only entry with its ID.
// current is not modified.
func (p MergePolicy) MergeQuestion(current []models.Question, updated models.Question) []models.Question {
	return mergeByID(current, updated, func(q models.Question) string { return q.ID }, p == MergeInPlace)
}

func mergeByID[T any](current []T, updated T, id func(T) string, inPlace bool) []T {
	key := id(updated)
	out := make([]T, 0, len(current)+1)
	placed := false
	for _, item := range current {
		if id(item) != key {
			out = append(out, item)
			continue
		}
		if inPlace && !placed {
			out = append(out, updated)
			placed = true
		}
	}
	if !placed {
		out = append(out, updated)
	}
	return out
}
