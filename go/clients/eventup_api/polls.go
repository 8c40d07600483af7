package eventup_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/eventup/live/go/internal/models"
)

type voteRequest struct {
	ChoiceID string `json:"choice_id"`
}

// ListPolls returns the polls of an event
func (c *Client) ListPolls(ctx context.Context, eventID, token string) ([]models.Poll, error) {
	endpoint := fmt.Sprintf(PollsEndpoint, url.PathEscape(eventID))

	var polls []models.Poll
	if err := c.GetJSON(ctx, endpoint, token, &polls); err != nil {
		return nil, fmt.Errorf("failed to get polls: %w", err)
	}
	return polls, nil
}

// ListUserVotes returns the viewer's vote history across polls
func (c *Client) ListUserVotes(ctx context.Context, token string) ([]models.UserVote, error) {
	var votes []models.UserVote
	if err := c.GetJSON(ctx, UserVotesEndpoint, token, &votes); err != nil {
		return nil, fmt.Errorf("failed to get user votes: %w", err)
	}
	return votes, nil
}

// Vote casts or changes the viewer's vote. The API answers with the updated poll.
func (c *Client) Vote(ctx context.Context, pollID, choiceID, token string) (models.Poll, error) {
	endpoint := fmt.Sprintf(VoteEndpoint, url.PathEscape(pollID))

	body, err := c.Post(ctx, endpoint, token, voteRequest{ChoiceID: choiceID})
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to vote: %w", err)
	}

	var poll models.Poll
	if err := json.Unmarshal(body, &poll); err != nil {
		return models.Poll{}, fmt.Errorf("failed to unmarshal vote response: %w, raw response: %s", err, string(body))
	}
	return poll, nil
}

// CreatePoll creates a poll on an event
func (c *Client) CreatePoll(ctx context.Context, eventID, text string, choices []string, token string) (models.Poll, error) {
	req := models.CreatePollRequest{
		Text:         text,
		EventID:      eventID,
		InputChoices: make([]models.CreateChoiceInput, 0, len(choices)),
	}
	for _, choice := range choices {
		req.InputChoices = append(req.InputChoices, models.CreateChoiceInput{Text: choice})
	}

	body, err := c.Post(ctx, fmt.Sprintf(PollsEndpoint, url.PathEscape(eventID)), token, req)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to create poll: %w", err)
	}

	var poll models.Poll
	if err := json.Unmarshal(body, &poll); err != nil {
		return models.Poll{}, fmt.Errorf("failed to unmarshal poll: %w", err)
	}
	return poll, nil
}
