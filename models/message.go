package models

import "time"

// File attachment kinds, derived from the MIME type when not supplied.
const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
	FileTypeAudio = "audio"
	FileTypeFile  = "file"
)

type Message struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"sender_id"`
	ReceiverID string     `json:"receiver_id"`
	Content    string     `json:"content"`
	FileURL    string     `json:"file_url,omitempty"`
	FileType   string     `json:"file_type,omitempty"`
	FileName   string     `json:"file_name,omitempty"`
	FileSize   int64      `json:"file_size,omitempty"`
	Duration   int        `json:"duration,omitempty"`
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MessageResponse is a message with the sender's public identity attached.
type MessageResponse struct {
	Message
	Sender UserResponse `json:"sender"`
}

// Conversation is one row of a user's conversation list: the peer, the most
// recent message exchanged with them, and how many of their messages remain
// unread.
type Conversation struct {
	Friend      UserResponse `json:"friend"`
	LastMessage Message      `json:"last_message"`
	UnreadCount int          `json:"unread_count"`
}
