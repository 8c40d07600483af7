package eventup_api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/eventup/live/go/internal/models"
)

// ListQuestions returns the Q&A questions of an event. The API answers either with a
// bare array or with a paginated {"results": [...]} object.
func (c *Client) ListQuestions(ctx context.Context, eventID, token string) ([]models.Question, error) {
	endpoint := fmt.Sprintf(QuestionsEndpoint, url.PathEscape(eventID))

	body, err := c.Get(ctx, endpoint, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	questions, err := decodeQuestions(body)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	return questions, nil
}

func decodeQuestions(body []byte) ([]models.Question, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var questions []models.Question
		if err := json.Unmarshal(trimmed, &questions); err != nil {
			return nil, err
		}
		return questions, nil
	}

	var page struct {
		Results []models.Question `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// CreateQuestion creates a Q&A question on an event
func (c *Client) CreateQuestion(ctx context.Context, eventID, text, token string) (models.Question, error) {
	req := models.CreateQuestionRequest{Text: text, EventID: eventID}

	body, err := c.Post(ctx, fmt.Sprintf(QuestionsEndpoint, url.PathEscape(eventID)), token, req)
	if err != nil {
		return models.Question{}, fmt.Errorf("failed to create question: %w", err)
	}

	var question models.Question
	if err := json.Unmarshal(body, &question); err != nil {
		return models.Question{}, fmt.Errorf("failed to unmarshal question: %w", err)
	}
	return question, nil
}
