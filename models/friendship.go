package models

import "time"

// Friend request statuses. A pending request leaves this state exactly once:
// accepted, rejected, or deleted by the sender's cancel.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// Friendship is a single undirected edge. UserLo < UserHi so each pair is
// stored exactly once.
type Friendship struct {
	ID        string    `json:"id"`
	UserLo    string    `json:"-"`
	UserHi    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// EdgeKey returns the canonical ordering for an undirected pair.
func EdgeKey(a, b string) (lo, hi string) {
	if a > b {
		return b, a
	}
	return a, b
}

type FriendRequest struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	ReceiverID  string     `json:"receiver_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

type FriendRequestWithUser struct {
	FriendRequest
	Sender UserResponse `json:"sender"`
}

type SentRequestWithUser struct {
	FriendRequest
	Receiver UserResponse `json:"receiver"`
}

type FriendWithUser struct {
	Since  time.Time    `json:"since"`
	Friend UserResponse `json:"friend"`
}

type Block struct {
	ID        string    `json:"id"`
	BlockerID string    `json:"blocker_id"`
	BlockedID string    `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

type BlockedWithUser struct {
	BlockedAt time.Time    `json:"blocked_at"`
	User      UserResponse `json:"user"`
}
