package service

import (
	"database/sql"
	"sort"

	"quickchat/models"
)

// ConversationService derives the per-user conversation list from the message
// table. Only current friends appear: history with a since-removed friend is
// excluded even though the messages still exist.
type ConversationService struct {
	db *sql.DB
}

func NewConversationService(db *sql.DB) *ConversationService {
	return &ConversationService{db: db}
}

func (s *ConversationService) Conversations(userID string) ([]models.Conversation, error) {
	friendRows, err := s.db.Query(`
		SELECT u.id, u.name, u.email, u.avatar, u.created_at
		FROM friendships f
		JOIN users u ON u.id = IF(f.user_lo = ?, f.user_hi, f.user_lo)
		WHERE f.user_lo = ? OR f.user_hi = ?
	`, userID, userID, userID)
	if err != nil {
		return nil, internal("database error")
	}
	defer friendRows.Close()

	friends := make(map[string]models.UserResponse)
	for friendRows.Next() {
		var u models.UserResponse
		var avatar sql.NullString
		if err := friendRows.Scan(&u.ID, &u.Name, &u.Email, &avatar, &u.CreatedAt); err != nil {
			continue
		}
		u.Avatar = avatar.String
		friends[u.ID] = u
	}

	msgRows, err := s.db.Query(`
		SELECT id, sender_id, receiver_id, content, file_url, file_type, file_name, file_size, duration, is_read, read_at, created_at
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC, seq DESC
	`, userID, userID)
	if err != nil {
		return nil, internal("database error")
	}
	defer msgRows.Close()

	// Rows arrive newest-first, so the first message seen per peer is the
	// conversation's last message.
	byPeer := make(map[string]*models.Conversation)
	var order []string
	for msgRows.Next() {
		msg, err := scanMessage(msgRows)
		if err != nil {
			continue
		}

		peerID := msg.SenderID
		if peerID == userID {
			peerID = msg.ReceiverID
		}

		friend, ok := friends[peerID]
		if !ok {
			continue
		}

		conv, ok := byPeer[peerID]
		if !ok {
			conv = &models.Conversation{Friend: friend, LastMessage: *msg}
			byPeer[peerID] = conv
			order = append(order, peerID)
		}
		if msg.ReceiverID == userID && !msg.IsRead {
			conv.UnreadCount++
		}
	}

	conversations := make([]models.Conversation, 0, len(order))
	for _, peerID := range order {
		conversations = append(conversations, *byPeer[peerID])
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.CreatedAt.After(conversations[j].LastMessage.CreatedAt)
	})

	return conversations, nil
}
