package service

import (
	"database/sql"
	"time"

	"quickchat/models"
	"quickchat/utils"
)

// FriendService owns the friend-request lifecycle and the block list.
// Every mutation that touches more than one row runs inside a transaction,
// so a symmetric relationship can never be half-applied.
type FriendService struct {
	db       *sql.DB
	notifier Notifier
}

func NewFriendService(db *sql.DB, notifier Notifier) *FriendService {
	return &FriendService{db: db, notifier: notifier}
}

func userExists(db *sql.DB, userID string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", userID).Scan(&exists)
	return exists, err
}

func edgeExists(db *sql.DB, a, b string) (bool, error) {
	lo, hi := models.EdgeKey(a, b)
	var exists bool
	err := db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)",
		lo, hi,
	).Scan(&exists)
	return exists, err
}

func blockExists(db *sql.DB, blockerID, blockedID string) (bool, error) {
	var exists bool
	err := db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)",
		blockerID, blockedID,
	).Scan(&exists)
	return exists, err
}

// hasMutualFriend reports whether a's and b's friend sets intersect.
func hasMutualFriend(db *sql.DB, a, b string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS(
			SELECT 1
			FROM friendships fa
			JOIN friendships fb
			  ON IF(fa.user_lo = ?, fa.user_hi, fa.user_lo) = IF(fb.user_lo = ?, fb.user_hi, fb.user_lo)
			WHERE (fa.user_lo = ? OR fa.user_hi = ?)
			  AND (fb.user_lo = ? OR fb.user_hi = ?)
		)
	`, a, b, a, a, b, b).Scan(&exists)
	return exists, err
}

// SendRequest appends a pending request on the receiver after the full gauntlet:
// self, existence, existing friendship, blocks in either direction, duplicate
// pending, and the receiver's privacy policy.
func (s *FriendService) SendRequest(senderID, receiverID string) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}

	var policy sql.NullString
	err := s.db.QueryRow("SELECT who_can_add_me FROM users WHERE id = ?", receiverID).Scan(&policy)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, internal("database error")
	}

	if friends, err := edgeExists(s.db, senderID, receiverID); err != nil {
		return nil, internal("database error")
	} else if friends {
		return nil, ErrAlreadyFriends
	}

	if blocked, err := blockExists(s.db, senderID, receiverID); err != nil {
		return nil, internal("database error")
	} else if blocked {
		return nil, ErrYouBlocked
	}
	if blocked, err := blockExists(s.db, receiverID, senderID); err != nil {
		return nil, internal("database error")
	} else if blocked {
		return nil, ErrBlockedByPeer
	}

	var pending bool
	err = s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = ? AND receiver_id = ? AND status = 'pending')",
		senderID, receiverID,
	).Scan(&pending)
	if err != nil {
		return nil, internal("database error")
	}
	if pending {
		return nil, ErrDuplicateRequest
	}

	// Unknown or missing policy defaults to allow.
	switch policy.String {
	case models.PrivacyNobody:
		return nil, ErrPrivacyDenied
	case models.PrivacyFriendsOfFriends:
		mutual, err := hasMutualFriend(s.db, senderID, receiverID)
		if err != nil {
			return nil, internal("database error")
		}
		if !mutual {
			return nil, ErrPrivacyDenied
		}
	}

	req := &models.FriendRequest{
		ID:         utils.GenerateUUID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.RequestPending,
		CreatedAt:  time.Now(),
	}

	_, err = s.db.Exec(
		"INSERT INTO friend_requests (id, sender_id, receiver_id, status, created_at) VALUES (?, ?, ?, 'pending', ?)",
		req.ID, senderID, receiverID, req.CreatedAt,
	)
	if err != nil {
		return nil, internal("failed to send friend request")
	}

	sender, err := s.getUser(senderID)
	if err == nil {
		s.notifier.EmitToUser(receiverID, "friend-request-received", models.FriendRequestWithUser{
			FriendRequest: *req,
			Sender:        *sender.ToResponse(),
		})
	}

	return req, nil
}

// AcceptRequest resolves a pending request addressed to receiverID and creates
// the friendship edge, both in one transaction.
func (s *FriendService) AcceptRequest(receiverID, requestID string) error {
	var senderID string
	err := s.db.QueryRow(
		"SELECT sender_id FROM friend_requests WHERE id = ? AND receiver_id = ? AND status = 'pending'",
		requestID, receiverID,
	).Scan(&senderID)
	if err == sql.ErrNoRows {
		return ErrRequestNotFound
	}
	if err != nil {
		return internal("database error")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return internal("database error")
	}

	now := time.Now()

	result, err := tx.Exec(
		"UPDATE friend_requests SET status = 'accepted', responded_at = ? WHERE id = ? AND status = 'pending'",
		now, requestID,
	)
	if err != nil {
		tx.Rollback()
		return internal("failed to accept request")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return internal("database error")
	}
	if rowsAffected == 0 {
		tx.Rollback()
		return ErrRequestNotFound
	}

	lo, hi := models.EdgeKey(senderID, receiverID)
	var already bool
	if err := tx.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)",
		lo, hi,
	).Scan(&already); err != nil {
		tx.Rollback()
		return internal("database error")
	}
	if already {
		// Crossed pendings: the reverse request was accepted first and the
		// edge exists. Commit so this request is resolved rather than left
		// pending forever, then report the conflict.
		if err := tx.Commit(); err != nil {
			return internal("failed to commit transaction")
		}
		return ErrAlreadyFriends
	}

	_, err = tx.Exec(
		"INSERT INTO friendships (id, user_lo, user_hi, created_at) VALUES (?, ?, ?, ?)",
		utils.GenerateUUID(), lo, hi, now,
	)
	if err != nil {
		tx.Rollback()
		return internal("failed to create friendship")
	}

	if err := tx.Commit(); err != nil {
		return internal("failed to commit transaction")
	}

	if receiver, err := s.getUser(receiverID); err == nil {
		s.notifier.EmitToUser(senderID, "friend-request-accepted", map[string]interface{}{
			"request_id": requestID,
			"friend":     receiver.ToResponse(),
		})
	}
	s.notifier.EmitToUser(senderID, "friend-status-updated", map[string]interface{}{
		"user_id": receiverID, "status": "friends",
	})
	s.notifier.EmitToUser(receiverID, "friend-status-updated", map[string]interface{}{
		"user_id": senderID, "status": "friends",
	})

	return nil
}

// RejectRequest marks a pending request rejected. No fan-out beyond the
// caller's acknowledgment.
func (s *FriendService) RejectRequest(receiverID, requestID string) error {
	result, err := s.db.Exec(
		"UPDATE friend_requests SET status = 'rejected', responded_at = ? WHERE id = ? AND receiver_id = ? AND status = 'pending'",
		time.Now(), requestID, receiverID,
	)
	if err != nil {
		return internal("failed to reject request")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return internal("database error")
	}
	if rowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// CancelRequest deletes the sender's own pending request outright, as if it
// was never sent.
func (s *FriendService) CancelRequest(senderID, receiverID string) error {
	result, err := s.db.Exec(
		"DELETE FROM friend_requests WHERE sender_id = ? AND receiver_id = ? AND status = 'pending'",
		senderID, receiverID,
	)
	if err != nil {
		return internal("failed to cancel request")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return internal("database error")
	}
	if rowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// RemoveFriend severs the edge and clears any residual pending requests
// between the pair. Removing a non-friend is a no-op, not an error.
func (s *FriendService) RemoveFriend(userID, friendID string) error {
	exists, err := userExists(s.db, friendID)
	if err != nil {
		return internal("database error")
	}
	if !exists {
		return ErrUserNotFound
	}

	tx, err := s.db.Begin()
	if err != nil {
		return internal("database error")
	}

	lo, hi := models.EdgeKey(userID, friendID)
	if _, err := tx.Exec("DELETE FROM friendships WHERE user_lo = ? AND user_hi = ?", lo, hi); err != nil {
		tx.Rollback()
		return internal("failed to remove friend")
	}
	if _, err := tx.Exec(
		"DELETE FROM friend_requests WHERE status = 'pending' AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
		userID, friendID, friendID, userID,
	); err != nil {
		tx.Rollback()
		return internal("failed to remove friend")
	}

	if err := tx.Commit(); err != nil {
		return internal("failed to commit transaction")
	}

	s.notifier.EmitToUser(friendID, "friend-removed", map[string]interface{}{"user_id": userID})
	s.notifier.EmitToUser(userID, "friend-status-updated", map[string]interface{}{
		"user_id": friendID, "status": "none",
	})
	s.notifier.EmitToUser(friendID, "friend-status-updated", map[string]interface{}{
		"user_id": userID, "status": "none",
	})

	return nil
}

// BlockUser adds a one-directional block and severs the bidirectional
// relationship: the friendship edge and all pending requests go, both ways,
// in one transaction.
func (s *FriendService) BlockUser(blockerID, targetID string) error {
	if blockerID == targetID {
		return ErrSelfBlock
	}

	exists, err := userExists(s.db, targetID)
	if err != nil {
		return internal("database error")
	}
	if !exists {
		return ErrUserNotFound
	}

	blocked, err := blockExists(s.db, blockerID, targetID)
	if err != nil {
		return internal("database error")
	}
	if blocked {
		return ErrAlreadyBlocked
	}

	tx, err := s.db.Begin()
	if err != nil {
		return internal("database error")
	}

	_, err = tx.Exec(
		"INSERT INTO blocks (id, blocker_id, blocked_id, created_at) VALUES (?, ?, ?, ?)",
		utils.GenerateUUID(), blockerID, targetID, time.Now(),
	)
	if err != nil {
		tx.Rollback()
		return internal("failed to block user")
	}

	lo, hi := models.EdgeKey(blockerID, targetID)
	if _, err := tx.Exec("DELETE FROM friendships WHERE user_lo = ? AND user_hi = ?", lo, hi); err != nil {
		tx.Rollback()
		return internal("failed to block user")
	}
	if _, err := tx.Exec(
		"DELETE FROM friend_requests WHERE status = 'pending' AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
		blockerID, targetID, targetID, blockerID,
	); err != nil {
		tx.Rollback()
		return internal("failed to block user")
	}

	if err := tx.Commit(); err != nil {
		return internal("failed to commit transaction")
	}

	s.notifier.EmitToUser(blockerID, "user-blocked", map[string]interface{}{"user_id": targetID})
	s.notifier.EmitToUser(targetID, "user-blocked-by", map[string]interface{}{"user_id": blockerID})

	return nil
}

// UnblockUser removes the block entry only. The prior friendship or pending
// requests are not restored.
func (s *FriendService) UnblockUser(blockerID, targetID string) error {
	result, err := s.db.Exec(
		"DELETE FROM blocks WHERE blocker_id = ? AND blocked_id = ?",
		blockerID, targetID,
	)
	if err != nil {
		return internal("failed to unblock user")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return internal("database error")
	}
	if rowsAffected == 0 {
		return ErrNotBlocked
	}
	return nil
}

func (s *FriendService) Friends(userID string) ([]models.FriendWithUser, error) {
	rows, err := s.db.Query(`
		SELECT f.created_at, u.id, u.name, u.email, u.avatar, u.created_at
		FROM friendships f
		JOIN users u ON u.id = IF(f.user_lo = ?, f.user_hi, f.user_lo)
		WHERE f.user_lo = ? OR f.user_hi = ?
		ORDER BY u.name
	`, userID, userID, userID)
	if err != nil {
		return nil, internal("database error")
	}
	defer rows.Close()

	friends := []models.FriendWithUser{}
	for rows.Next() {
		var f models.FriendWithUser
		var avatar sql.NullString
		if err := rows.Scan(&f.Since, &f.Friend.ID, &f.Friend.Name, &f.Friend.Email, &avatar, &f.Friend.CreatedAt); err != nil {
			continue
		}
		f.Friend.Avatar = avatar.String
		friends = append(friends, f)
	}
	return friends, nil
}

// PendingRequests lists incoming pending requests with the sender's profile.
func (s *FriendService) PendingRequests(userID string) ([]models.FriendRequestWithUser, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.sender_id, r.receiver_id, r.status, r.created_at,
			   u.id, u.name, u.email, u.avatar, u.created_at
		FROM friend_requests r
		JOIN users u ON u.id = r.sender_id
		WHERE r.receiver_id = ? AND r.status = 'pending'
		ORDER BY r.created_at DESC
	`, userID)
	if err != nil {
		return nil, internal("database error")
	}
	defer rows.Close()

	requests := []models.FriendRequestWithUser{}
	for rows.Next() {
		var r models.FriendRequestWithUser
		var avatar sql.NullString
		if err := rows.Scan(
			&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt,
			&r.Sender.ID, &r.Sender.Name, &r.Sender.Email, &avatar, &r.Sender.CreatedAt,
		); err != nil {
			continue
		}
		r.Sender.Avatar = avatar.String
		requests = append(requests, r)
	}
	return requests, nil
}

// SentRequests lists the caller's own outgoing pending requests.
func (s *FriendService) SentRequests(userID string) ([]models.SentRequestWithUser, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.sender_id, r.receiver_id, r.status, r.created_at,
			   u.id, u.name, u.email, u.avatar, u.created_at
		FROM friend_requests r
		JOIN users u ON u.id = r.receiver_id
		WHERE r.sender_id = ? AND r.status = 'pending'
		ORDER BY r.created_at DESC
	`, userID)
	if err != nil {
		return nil, internal("database error")
	}
	defer rows.Close()

	requests := []models.SentRequestWithUser{}
	for rows.Next() {
		var r models.SentRequestWithUser
		var avatar sql.NullString
		if err := rows.Scan(
			&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt,
			&r.Receiver.ID, &r.Receiver.Name, &r.Receiver.Email, &avatar, &r.Receiver.CreatedAt,
		); err != nil {
			continue
		}
		r.Receiver.Avatar = avatar.String
		requests = append(requests, r)
	}
	return requests, nil
}

func (s *FriendService) Blocked(userID string) ([]models.BlockedWithUser, error) {
	rows, err := s.db.Query(`
		SELECT b.created_at, u.id, u.name, u.email, u.avatar, u.created_at
		FROM blocks b
		JOIN users u ON u.id = b.blocked_id
		WHERE b.blocker_id = ?
		ORDER BY b.created_at DESC
	`, userID)
	if err != nil {
		return nil, internal("database error")
	}
	defer rows.Close()

	blocked := []models.BlockedWithUser{}
	for rows.Next() {
		var b models.BlockedWithUser
		var avatar sql.NullString
		if err := rows.Scan(&b.BlockedAt, &b.User.ID, &b.User.Name, &b.User.Email, &avatar, &b.User.CreatedAt); err != nil {
			continue
		}
		b.User.Avatar = avatar.String
		blocked = append(blocked, b)
	}
	return blocked, nil
}

func (s *FriendService) getUser(userID string) (*models.User, error) {
	var u models.User
	var avatar sql.NullString
	err := s.db.QueryRow(
		"SELECT id, name, email, avatar, created_at FROM users WHERE id = ?",
		userID,
	).Scan(&u.ID, &u.Name, &u.Email, &avatar, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, internal("database error")
	}
	u.Avatar = avatar.String
	return &u, nil
}
