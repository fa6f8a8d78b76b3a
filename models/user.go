package models

import "time"

// Privacy policies for who may send a friend request.
const (
	PrivacyEveryone         = "everyone"
	PrivacyFriendsOfFriends = "friends_of_friends"
	PrivacyNobody           = "nobody"
)

type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	Avatar      string    `json:"avatar"`
	WhoCanAddMe string    `json:"who_can_add_me"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserResponse is the public projection of a user. It never carries the
// password hash or privacy settings.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

func ValidPrivacy(p string) bool {
	switch p {
	case PrivacyEveryone, PrivacyFriendsOfFriends, PrivacyNobody:
		return true
	}
	return false
}
