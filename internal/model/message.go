package model

import "time"

// Message is a direct message between two users.
type Message struct {
	ID        int64      `json:"id"`
	FromID    int64      `json:"from_id"`
	ToID      int64      `json:"to_id"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// MaxMessageLength bounds message bodies, in characters.
const MaxMessageLength = 2000

// Conversation summarises the messages exchanged with one peer.
type Conversation struct {
	Peer        UserRef `json:"peer"`
	LastMessage Message `json:"last_message"`
	Unread      int     `json:"unread"`
}

// Notification is an in-app notice addressed to a single user.
type Notification struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Kind       string     `json:"kind"`
	Text       string     `json:"text"`
	ResourceID *int64     `json:"resource_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// Notification kinds.
const (
	NotificationResourceRequested = "resource_requested"
	NotificationResourceApproved  = "resource_approved"
	NotificationResourceDeclined  = "resource_declined"
	NotificationResourceReturned  = "resource_returned"
	NotificationAccountApproved   = "account_approved"
	NotificationAccountRejected   = "account_rejected"
	NotificationMessage           = "message"
)
