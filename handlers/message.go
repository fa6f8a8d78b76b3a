package handlers

import (
	"github.com/gin-gonic/gin"

	"quickchat/middleware"
	"quickchat/service"
	"quickchat/utils"
)

type Messages struct {
	svc  *service.MessageService
	conv *service.ConversationService
}

func NewMessages(svc *service.MessageService, conv *service.ConversationService) *Messages {
	return &Messages{svc: svc, conv: conv}
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Content    string `json:"content"`
	Image      string `json:"image"`
}

type MarkReadRequest struct {
	MessageIDs []string `json:"messageIds" binding:"required"`
}

func (h *Messages) Send(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var msg interface{}
	var err error
	if req.Image != "" {
		// Inline image reference sent through the text endpoint.
		msg, err = h.svc.SendFile(userID, req.ReceiverID, service.FileMeta{
			URL:      req.Image,
			FileType: "image",
		}, req.Content)
	} else {
		msg, err = h.svc.Send(userID, req.ReceiverID, req.Content)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Success(c, msg)
}

func (h *Messages) Chat(c *gin.Context) {
	userID := middleware.GetUserID(c)
	peerID := c.Param("userId")

	messages, err := h.svc.Chat(userID, peerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Success(c, messages)
}

func (h *Messages) Conversations(c *gin.Context) {
	conversations, err := h.conv.Conversations(middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, conversations)
}

func (h *Messages) MarkRead(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.svc.MarkRead(userID, req.MessageIDs); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessMessage(c, "messages marked as read")
}
