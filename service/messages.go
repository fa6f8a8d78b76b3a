package service

import (
	"database/sql"
	"strings"
	"time"

	"quickchat/models"
	"quickchat/utils"
)

// MessageService persists direct messages. Every write re-validates through
// the Authorizer; a message is never re-checked after creation even if the
// relationship later changes.
type MessageService struct {
	db       *sql.DB
	authz    *Authorizer
	notifier Notifier
}

func NewMessageService(db *sql.DB, authz *Authorizer, notifier Notifier) *MessageService {
	return &MessageService{db: db, authz: authz, notifier: notifier}
}

// FileMeta describes an attachment already stored by the upload handler.
type FileMeta struct {
	URL      string
	MimeType string
	FileType string // optional explicit override
	FileName string
	FileSize int64
	Duration int // voice messages, seconds
}

// DeriveFileType maps a MIME type onto the attachment kind by prefix. An
// explicit type, when valid, wins over the MIME sniff.
func DeriveFileType(mimeType, explicit string) string {
	switch explicit {
	case models.FileTypeImage, models.FileTypeVideo, models.FileTypeAudio, models.FileTypeFile:
		return explicit
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.FileTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return models.FileTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return models.FileTypeAudio
	}
	return models.FileTypeFile
}

// Send persists a text message after the authorization gate passes.
func (s *MessageService) Send(senderID, receiverID, content string) (*models.MessageResponse, error) {
	return s.persist(senderID, receiverID, content, nil)
}

// SendFile persists a message referencing an externally stored attachment.
// Content falls back to an attachment indicator when no text accompanies it.
func (s *MessageService) SendFile(senderID, receiverID string, meta FileMeta, text string) (*models.MessageResponse, error) {
	if meta.URL == "" {
		return nil, validation("file url is required")
	}
	if text == "" {
		text = "[attachment]"
	}

	msg, err := s.persist(senderID, receiverID, text, &meta)
	if err != nil {
		return nil, err
	}

	// Unlike the text path, where the client relays over its own socket, the
	// upload flow emits server-side so the receiver sees the attachment
	// without a second client round trip.
	s.notifier.EmitToUser(receiverID, "receive-message", msg)
	echo := *msg
	echo.IsRead = true
	s.notifier.EmitToUser(senderID, "receive-message", &echo)

	return msg, nil
}

func (s *MessageService) persist(senderID, receiverID, content string, meta *FileMeta) (*models.MessageResponse, error) {
	if content == "" && meta == nil {
		return nil, validation("message content is required")
	}

	exists, err := userExists(s.db, receiverID)
	if err != nil {
		return nil, internal("database error")
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	allowed, reasons, err := s.authz.CanMessage(senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, DenialError(reasons)
	}

	msg := models.Message{
		ID:         utils.GenerateUUID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}

	var fileType sql.NullString
	if meta != nil {
		msg.FileURL = meta.URL
		msg.FileType = DeriveFileType(meta.MimeType, meta.FileType)
		msg.FileName = meta.FileName
		msg.FileSize = meta.FileSize
		msg.Duration = meta.Duration
		fileType = sql.NullString{String: msg.FileType, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO messages (id, sender_id, receiver_id, content, file_url, file_type, file_name, file_size, duration, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?)
	`, msg.ID, senderID, receiverID, content,
		sql.NullString{String: msg.FileURL, Valid: msg.FileURL != ""},
		fileType,
		sql.NullString{String: msg.FileName, Valid: msg.FileName != ""},
		msg.FileSize, msg.Duration, msg.CreatedAt,
	)
	if err != nil {
		return nil, internal("failed to send message")
	}

	var sender models.User
	var avatar sql.NullString
	err = s.db.QueryRow(
		"SELECT id, name, email, avatar, created_at FROM users WHERE id = ?",
		senderID,
	).Scan(&sender.ID, &sender.Name, &sender.Email, &avatar, &sender.CreatedAt)
	if err != nil {
		return nil, internal("database error")
	}
	sender.Avatar = avatar.String

	return &models.MessageResponse{Message: msg, Sender: *sender.ToResponse()}, nil
}

// Chat returns the full thread between userID and peerID in chronological
// order. Viewing the thread marks every unread message from the peer as read
// (read-on-view) and notifies the peer per message.
func (s *MessageService) Chat(userID, peerID string) ([]models.Message, error) {
	allowed, reasons, err := s.authz.CanMessage(userID, peerID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, DenialError(reasons)
	}

	rows, err := s.db.Query(`
		SELECT id, sender_id, receiver_id, content, file_url, file_type, file_name, file_size, duration, is_read, read_at, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, seq ASC
	`, userID, peerID, peerID, userID)
	if err != nil {
		return nil, internal("database error")
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			continue
		}
		messages = append(messages, *msg)
	}

	now := time.Now()
	_, err = s.db.Exec(
		"UPDATE messages SET is_read = TRUE, read_at = ? WHERE receiver_id = ? AND sender_id = ? AND is_read = FALSE",
		now, userID, peerID,
	)
	if err != nil {
		return nil, internal("failed to mark messages as read")
	}

	for i := range messages {
		if messages[i].ReceiverID == userID && !messages[i].IsRead {
			messages[i].IsRead = true
			messages[i].ReadAt = &now
			s.notifier.EmitToUser(peerID, "message-read", map[string]interface{}{
				"message_id": messages[i].ID,
				"reader_id":  userID,
				"read_at":    now,
			})
		}
	}

	return messages, nil
}

// MarkRead flips is_read on the given messages, but only those addressed to
// readerID. Ids belonging to other receivers are silently skipped so a caller
// cannot acknowledge someone else's messages.
func (s *MessageService) MarkRead(readerID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(messageIDs)-1) + "?"
	args := make([]interface{}, 0, len(messageIDs)+2)
	args = append(args, time.Now(), readerID)
	for _, id := range messageIDs {
		args = append(args, id)
	}

	_, err := s.db.Exec(
		"UPDATE messages SET is_read = TRUE, read_at = ? WHERE receiver_id = ? AND is_read = FALSE AND id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return internal("failed to mark messages as read")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(r rowScanner) (*models.Message, error) {
	var msg models.Message
	var fileURL, fileType, fileName sql.NullString
	var readAt sql.NullTime
	if err := r.Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content,
		&fileURL, &fileType, &fileName, &msg.FileSize, &msg.Duration,
		&msg.IsRead, &readAt, &msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	msg.FileURL = fileURL.String
	msg.FileType = fileType.String
	msg.FileName = fileName.String
	if readAt.Valid {
		msg.ReadAt = &readAt.Time
	}
	return &msg, nil
}
