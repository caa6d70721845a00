package models

import (
	"time"

	"github.com/ColeUyematsu/RoomMatchv2/pkg/vector"
)

const (
	// QuestionCount is the fixed length of the questionnaire. Every response
	// vector has exactly this many slots, in question order.
	QuestionCount = 25

	// AnswerMin and AnswerMax bound the rating scale shown to users.
	AnswerMin = 1
	AnswerMax = 7

	// NeutralAnswer replaces missing answers before any similarity computation.
	NeutralAnswer = 4
)

// QuestionnaireResponse is the latest raw submission for a user. Unanswered
// questions are nil; they are filled with NeutralAnswer only when the vector
// is materialized, never written back unless a caller asks for it.
type QuestionnaireResponse struct {
	UserID    int64                    `json:"user_id"`
	Answers   [QuestionCount]*int16    `json:"answers"`
	CreatedAt time.Time                `json:"created_at"`
}

// Vector returns the filled fixed-width vector for similarity computation.
// Filling is idempotent: an already-complete response round-trips unchanged.
func (r *QuestionnaireResponse) Vector() vector.Vector {
	var v vector.Vector
	for i, a := range r.Answers {
		if a == nil {
			v[i] = NeutralAnswer
		} else {
			v[i] = float32(*a)
		}
	}
	return v
}

// Complete reports whether every question has an answer.
func (r *QuestionnaireResponse) Complete() bool {
	for _, a := range r.Answers {
		if a == nil {
			return false
		}
	}
	return true
}

// SubmitResponsesRequest is the payload for submitting questionnaire answers.
// Answers shorter than QuestionCount are padded with nil (unanswered).
type SubmitResponsesRequest struct {
	UserID  int64    `json:"user_id"`
	Answers []*int16 `json:"answers"`
}
