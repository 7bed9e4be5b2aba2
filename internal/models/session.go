package models

import "time"

// Session statuses
const (
	SessionActive   = "active"
	SessionInactive = "inactive"
)

// SessionState is the in-memory Q&A window of one conversation.
// It is never persisted.
type SessionState struct {
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ActiveAt reports whether the session accepts questions at the given time
func (s SessionState) ActiveAt(now time.Time) bool {
	if s.Status != SessionActive {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// Candidate is one respondent offered in the selection menu
type Candidate struct {
	UserID      uint   `json:"user_id"`
	DisplayName string `json:"display_name"`
	Contact     string `json:"contact"`
}

// PendingSelection is an in-flight respondent choice waiting for a reply
type PendingSelection struct {
	AskerUserID  uint        `json:"asker_user_id"`
	AskerPhone   string      `json:"asker_phone"`
	QuestionText string      `json:"question_text"`
	GroupID      string      `json:"group_id"`
	Candidates   []Candidate `json:"candidates"`
}

// ContinuationKind tells the dispatcher what the next reply answers
type ContinuationKind int

const (
	// ContinuationSelection expects a respondent number
	ContinuationSelection ContinuationKind = iota + 1
	// ContinuationConfirmDuplicate expects "lanjut" after a similar-questions notice
	ContinuationConfirmDuplicate
)

func (k ContinuationKind) String() string {
	switch k {
	case ContinuationSelection:
		return "selection"
	case ContinuationConfirmDuplicate:
		return "confirm_duplicate"
	default:
		return "unknown"
	}
}

// Continuation is the one-shot expectation armed for a conversation
type Continuation struct {
	Kind    ContinuationKind
	ArmedAt time.Time

	// ContinuationSelection
	Selection *PendingSelection

	// ContinuationConfirmDuplicate
	AskerPhone   string
	QuestionText string
}
