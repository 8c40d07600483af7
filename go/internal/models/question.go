package models

// AnswerUser is the responding user as embedded in an answer
type AnswerUser struct {
	Username string `json:"username"`
}

// Answer is a response to a live Q&A question
type Answer struct {
	ID   string     `json:"id"`
	Text string     `json:"text"`
	User AnswerUser `json:"user"`
}

// Question represents a live Q&A question with its answers in server order
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Answers []Answer `json:"answers"`
}

// CreateQuestionRequest is the body for creating a question on an event
type CreateQuestionRequest struct {
	Text    string `json:"text"`
	EventID string `json:"event_uuid"`
}
