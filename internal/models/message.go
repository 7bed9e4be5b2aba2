package models

import "github.com/Ananth-NQI/narasumber-backend/internal/utils"

// InboundMessage is one message received from the transport
type InboundMessage struct {
	ConversationID string   `json:"conversation_id"` // chat address the reply goes to
	SenderID       string   `json:"sender_id"`
	AuthorID       string   `json:"author_id,omitempty"` // set in groups: the member who wrote it
	IsGroup        bool     `json:"is_group"`
	Body           string   `json:"body"`
	MentionedIDs   []string `json:"mentioned_ids,omitempty"`
}

// SenderPhone returns the canonical phone of whoever wrote the message
func (m *InboundMessage) SenderPhone() string {
	if m.AuthorID != "" {
		return utils.NormalizePhone(m.AuthorID)
	}
	return utils.NormalizePhone(m.SenderID)
}

// MentionedPhones returns the canonical phones of all mentions, deduplicated
func (m *InboundMessage) MentionedPhones() []string {
	seen := make(map[string]bool, len(m.MentionedIDs))
	phones := make([]string, 0, len(m.MentionedIDs))
	for _, id := range m.MentionedIDs {
		phone := utils.NormalizePhone(id)
		if phone == "" || seen[phone] {
			continue
		}
		seen[phone] = true
		phones = append(phones, phone)
	}
	return phones
}

// Conversation identifies the chat a message arrived in
type Conversation struct {
	ID      string
	IsGroup bool
}

// Conversation returns the chat this message belongs to
func (m *InboundMessage) Conversation() Conversation {
	return Conversation{ID: m.ConversationID, IsGroup: m.IsGroup}
}
