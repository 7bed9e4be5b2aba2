package models

import "gorm.io/gorm"

// Question statuses
const (
	QuestionStatusPending  = "pending"
	QuestionStatusAnswered = "answered"
)

// Question is a question submitted over WhatsApp. One row exists per
// respondent it was assigned to.
type Question struct {
	gorm.Model

	UserID       uint    `json:"user_id" gorm:"not null;index"`
	QuestionText string  `json:"question_text" gorm:"type:text;not null"`
	Status       string  `json:"status" gorm:"default:pending;index"`
	AssignedTo   *uint   `json:"assigned_to" gorm:"index"`
	GroupID      *string `json:"group_id" gorm:"index"`
}

// NewQuestion builds a pending question row
func NewQuestion(askerID uint, text string, assignedTo *uint, groupID string) *Question {
	q := &Question{
		UserID:       askerID,
		QuestionText: text,
		Status:       QuestionStatusPending,
		AssignedTo:   assignedTo,
	}
	if groupID != "" {
		q.GroupID = &groupID
	}
	return q
}
