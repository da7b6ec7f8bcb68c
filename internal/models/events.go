// Package models defines the data structures for question and answer events.
package models

const (
	EventTypeQuestion = "interview.question"
	EventTypeAnswer   = "interview.answer"
)

// QuestionEvent is published when a transcribed utterance becomes a question.
type QuestionEvent struct {
	EventType   string  `json:"eventType"`
	SessionID   string  `json:"sessionId"`
	Principal   string  `json:"principal"`
	Timestamp   int64   `json:"timestamp"`
	Index       int     `json:"index"`
	UtteranceID string  `json:"utteranceId"`
	Question    string  `json:"question"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// AnswerEvent is published when an answer arrives for a question. Status is
// "answered" or "failed"; a failed answer carries the placeholder text.
type AnswerEvent struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	Principal   string `json:"principal"`
	Timestamp   int64  `json:"timestamp"`
	Index       int    `json:"index"`
	UtteranceID string `json:"utteranceId"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
}
