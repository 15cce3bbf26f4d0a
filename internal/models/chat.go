package models

import "time"

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// PartnerOf returns the participant of the message that is not selfID.
func (m Message) PartnerOf(selfID string) string {
	if m.SenderID == selfID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Involves reports whether userID sent or received the message.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Conversation is derived from the message log, one per distinct partner.
type Conversation struct {
	PartnerID          string    `json:"partner_id"`
	PartnerDisplayName string    `json:"partner_display_name"`
	PartnerAvatar      *string   `json:"partner_avatar"`
	LastMessageText    string    `json:"last_message_text"`
	LastMessageTime    time.Time `json:"last_message_time"`
	UnreadCount        int       `json:"unread_count"`
}

type Contact struct {
	PartnerID          string  `json:"partner_id"`
	PartnerDisplayName string  `json:"partner_display_name"`
	PartnerAvatar      *string `json:"partner_avatar"`
	RelationshipStatus string  `json:"relationship_status"`
}
