package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quickchat/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	ID     string
	UserID string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}

		c.handleEvent(message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleEvent dispatches a client frame. The relay events are advisory and
// never answer with an error: a malformed frame or an offline receiver is
// silently dropped. The REST path is the reliable one.
func (c *Client) handleEvent(message []byte) {
	var evt clientEvent
	if err := json.Unmarshal(message, &evt); err != nil {
		return
	}

	switch evt.Event {
	case "ping":
		c.sendPong()
	case "join-user-room":
		// The socket already joined its own room at connect time; kept for
		// protocol compatibility with older clients.
	case "user-online":
		c.Hub.broadcastPresence(c.UserID, true)
	case "send-message":
		c.relayMessage(evt.Data)
	case "typing":
		c.relayTyping(evt.Data)
	case "message-read":
		c.relayRead(evt.Data)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(&Event{Event: "pong"})
	select {
	case c.Send <- data:
	default:
	}
}

// relayMessage forwards the payload to the receiver's room with is_read=false
// and echoes it back to the sender's own room self-acknowledged. The relay is
// immediacy only; the client persists the message through the REST endpoint
// independently.
func (c *Client) relayMessage(data json.RawMessage) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	receiverID, _ := payload["receiver_id"].(string)
	if receiverID == "" {
		return
	}

	payload["sender_id"] = c.UserID

	payload["is_read"] = false
	c.Hub.EmitToUser(receiverID, "receive-message", payload)

	echo := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		echo[k] = v
	}
	echo["is_read"] = true
	c.Hub.EmitToUser(c.UserID, "receive-message", echo)
}

func (c *Client) relayTyping(data json.RawMessage) {
	var payload struct {
		ReceiverID string `json:"receiver_id"`
		IsTyping   bool   `json:"is_typing"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.ReceiverID == "" {
		return
	}

	c.Hub.EmitToUser(payload.ReceiverID, "user-typing", map[string]interface{}{
		"sender_id": c.UserID,
		"is_typing": payload.IsTyping,
	})
}

// relayRead tells the original sender their message was read, then persists
// the read state off the hot path.
func (c *Client) relayRead(data json.RawMessage) {
	var payload struct {
		MessageID string `json:"message_id"`
		SenderID  string `json:"sender_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.MessageID == "" {
		return
	}

	if payload.SenderID != "" {
		c.Hub.EmitToUser(payload.SenderID, "message-read", map[string]interface{}{
			"message_id": payload.MessageID,
			"reader_id":  c.UserID,
		})
	}

	if c.Hub.messages != nil {
		readerID := c.UserID
		messageID := payload.MessageID
		go c.Hub.messages.MarkRead(readerID, []string{messageID})
	}
}

func (h *Hub) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: claims.UserID,
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.register <- client

	go client.WritePump()
	go client.ReadPump()
}
