package models

// Choice is one selectable option of a poll. Votes is the server tally and is never
// incremented locally.
type Choice struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll represents a live poll attached to an event
type Poll struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Choices []Choice `json:"choices"`
}

// Choice returns the choice with the given id
func (p Poll) Choice(choiceID string) (Choice, bool) {
	for _, c := range p.Choices {
		if c.ID == choiceID {
			return c, true
		}
	}
	return Choice{}, false
}

// TotalVotes sums the server-reported counts across all choices
func (p Poll) TotalVotes() int {
	total := 0
	for _, c := range p.Choices {
		total += c.Votes
	}
	return total
}

// UserVote is one entry of the viewer's vote history. The backend names the poll
// "question_id".
type UserVote struct {
	PollID   string `json:"question_id"`
	ChoiceID string `json:"choice_id"`
}

// UserVoteMap maps poll ID to the choice ID the viewer selected
type UserVoteMap map[string]string

// NewUserVoteMap builds a vote map from the server's vote history
func NewUserVoteMap(votes []UserVote) UserVoteMap {
	m := make(UserVoteMap, len(votes))
	for _, v := range votes {
		m[v.PollID] = v.ChoiceID
	}
	return m
}

// Clone returns an independent copy
func (m UserVoteMap) Clone() UserVoteMap {
	out := make(UserVoteMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CreatePollRequest is the body for creating a poll on an event
type CreatePollRequest struct {
	Text         string              `json:"text"`
	EventID      string              `json:"event_uuid"`
	InputChoices []CreateChoiceInput `json:"input_choices"`
}

// CreateChoiceInput is a choice in a CreatePollRequest
type CreateChoiceInput struct {
	Text string `json:"text"`
}
