package handlers

import (
	"github.com/gin-gonic/gin"

	"quickchat/middleware"
	"quickchat/service"
	"quickchat/utils"
)

type Friends struct {
	svc *service.FriendService
}

func NewFriends(svc *service.FriendService) *Friends {
	return &Friends{svc: svc}
}

func (h *Friends) SendRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	targetID := c.Param("userId")

	req, err := h.svc.SendRequest(userID, targetID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Success(c, req)
}

func (h *Friends) AcceptRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	requestID := c.Param("requestId")

	if err := h.svc.AcceptRequest(userID, requestID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessMessage(c, "friend request accepted")
}

func (h *Friends) RejectRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	requestID := c.Param("requestId")

	if err := h.svc.RejectRequest(userID, requestID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessMessage(c, "friend request rejected")
}

func (h *Friends) CancelRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	targetID := c.Param("userId")

	if err := h.svc.CancelRequest(userID, targetID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessMessage(c, "friend request cancelled")
}

func (h *Friends) RemoveFriend(c *gin.Context) {
	userID := middleware.GetUserID(c)
	friendID := c.Param("friendId")

	if err := h.svc.RemoveFriend(userID, friendID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessMessage(c, "friend removed")
}

func (h *Friends) Block(c *gin.Context) {
	userID := middleware.GetUserID(c)
	targetID := c.Param("userId")

	if err := h.svc.BlockUser(userID, targetID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessMessage(c, "user blocked")
}

func (h *Friends) Unblock(c *gin.Context) {
	userID := middleware.GetUserID(c)
	targetID := c.Param("userId")

	if err := h.svc.UnblockUser(userID, targetID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessMessage(c, "user unblocked")
}

func (h *Friends) ListFriends(c *gin.Context) {
	friends, err := h.svc.Friends(middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, friends)
}

func (h *Friends) ListRequests(c *gin.Context) {
	requests, err := h.svc.PendingRequests(middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, requests)
}

func (h *Friends) ListSentRequests(c *gin.Context) {
	requests, err := h.svc.SentRequests(middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, requests)
}

func (h *Friends) ListBlocked(c *gin.Context) {
	blocked, err := h.svc.Blocked(middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, blocked)
}
