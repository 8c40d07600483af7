package live

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eventup/live/go/internal/models"
)

// MessageType is the discriminator of a message pushed over the live channel
type MessageType string

const (
	MessageTypePollUpdate MessageType = "poll_update"
	MessageTypeQnAUpdate  MessageType = "qna_update"
	MessageTypeError      MessageType = "error"
)

// ActionNewAnswer is the outbound action for submitting an answer
const ActionNewAnswer = "new_answer"

// ErrUnknownMessage is returned for a well-formed message with an unrecognised type
var ErrUnknownMessage = errors.New("unknown message type")

// Message is one decoded inbound message: PollUpdate, QnAUpdate or ErrorMessage
type Message interface {
	Type() MessageType
}

// PollUpdate carries the full, current state of one poll
type PollUpdate struct {
	Poll models.Poll
}

func (PollUpdate) Type() MessageType { return MessageTypePollUpdate }

// QnAUpdate carries the full, current state of one question
type QnAUpdate struct {
	Question models.Question
}

func (QnAUpdate) Type() MessageType { return MessageTypeQnAUpdate }

// ErrorMessage is a server-side failure. PollID is set when the error concerns a poll.
type ErrorMessage struct {
	Message string
	PollID  string
}

func (ErrorMessage) Type() MessageType { return MessageTypeError }

// envelope is the wire shape of every inbound message
type envelope struct {
	Type     MessageType      `json:"type"`
	Poll     *models.Poll     `json:"poll,omitempty"`
	Question *models.Question `json:"question,omitempty"`
	Error    string           `json:"error,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// ParseMessage decodes an inbound payload into its typed message
func ParseMessage(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal live message: %w", err)
	}

	switch env.Type {
	case MessageTypePollUpdate:
		if env.Poll == nil || env.Poll.ID == "" {
			return nil, fmt.Errorf("%s without poll", env.Type)
		}
		return PollUpdate{Poll: *env.Poll}, nil

	case MessageTypeQnAUpdate:
		if env.Question == nil || env.Question.ID == "" {
			return nil, fmt.Errorf("%s without question", env.Type)
		}
		return QnAUpdate{Question: *env.Question}, nil

	case MessageTypeError:
		msg := ErrorMessage{Message: env.Error}
		if msg.Message == "" {
			msg.Message = env.Message
		}
		if msg.Message == "" {
			msg.Message = "unknown error"
		}
		if env.Poll != nil {
			msg.PollID = env.Poll.ID
		}
		return msg, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

// NewAnswer is the outbound message submitting an answer to a question
type NewAnswer struct {
	Action     string `json:"action"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

// NewAnswerMessage builds a new_answer message
func NewAnswerMessage(questionID, text string) NewAnswer {
	return NewAnswer{Action: ActionNewAnswer, QuestionID: questionID, Text: text}
}
