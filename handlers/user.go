package handlers

import (
	"database/sql"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quickchat/middleware"
	"quickchat/models"
	"quickchat/utils"
)

type Users struct {
	db *sql.DB
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

type UpdateUserRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type UpdatePrivacyRequest struct {
	WhoCanAddMe string `json:"whoCanAddMe" binding:"required"`
}

func (h *Users) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var user models.User
	var avatar, privacy sql.NullString
	err := h.db.QueryRow(
		"SELECT id, name, email, avatar, who_can_add_me, created_at FROM users WHERE id = ?",
		userID,
	).Scan(&user.ID, &user.Name, &user.Email, &avatar, &privacy, &user.CreatedAt)

	if err == sql.ErrNoRows {
		utils.NotFound(c, "user not found")
		return
	}
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}
	user.Avatar = avatar.String
	user.WhoCanAddMe = privacy.String

	utils.Success(c, user)
}

func (h *Users) UpdateMe(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	_, err := h.db.Exec(
		"UPDATE users SET name = COALESCE(NULLIF(?, ''), name), avatar = COALESCE(NULLIF(?, ''), avatar), updated_at = ? WHERE id = ?",
		req.Name, req.Avatar, time.Now(), userID,
	)
	if err != nil {
		utils.InternalError(c, "failed to update user")
		return
	}

	h.Me(c)
}

func (h *Users) UpdatePrivacy(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req UpdatePrivacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if !models.ValidPrivacy(req.WhoCanAddMe) {
		utils.BadRequest(c, "whoCanAddMe must be one of: everyone, friends_of_friends, nobody")
		return
	}

	_, err := h.db.Exec(
		"UPDATE users SET who_can_add_me = ?, updated_at = ? WHERE id = ?",
		req.WhoCanAddMe, time.Now(), userID,
	)
	if err != nil {
		utils.InternalError(c, "failed to update privacy settings")
		return
	}

	utils.SuccessMessage(c, "privacy settings updated")
}

// Search matches name or email prefix. Users who blocked the searcher are
// excluded so a block also hides the blocker from discovery.
func (h *Users) Search(c *gin.Context) {
	userID := middleware.GetUserID(c)

	query := c.Query("q")
	if query == "" {
		utils.BadRequest(c, "search query is required")
		return
	}

	pattern := escapeLikePattern(query) + "%"
	rows, err := h.db.Query(`
		SELECT u.id, u.name, u.email, u.avatar, u.created_at
		FROM users u
		WHERE (u.name LIKE ? ESCAPE '\\' OR u.email LIKE ? ESCAPE '\\')
		  AND u.id != ?
		  AND NOT EXISTS (SELECT 1 FROM blocks b WHERE b.blocker_id = u.id AND b.blocked_id = ?)
		ORDER BY u.name
		LIMIT 20
	`, pattern, pattern, userID, userID)
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}
	defer rows.Close()

	users := []models.UserResponse{}
	for rows.Next() {
		var u models.UserResponse
		var avatar sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &avatar, &u.CreatedAt); err != nil {
			continue
		}
		u.Avatar = avatar.String
		users = append(users, u)
	}

	utils.Success(c, users)
}

// escapeLikePattern escapes LIKE wildcards in user-supplied search text.
func escapeLikePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "\\\\")
	pattern = strings.ReplaceAll(pattern, "%", "\\%")
	pattern = strings.ReplaceAll(pattern, "_", "\\_")
	return pattern
}
