package domain

import (
	"time"
)

// User is a registered user with their contact channels on file.
type User struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	QQ        string    `json:"qq,omitempty"`
	Wechat    string    `json:"wechat,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact returns the user's value for the given contact method, empty
// when none is on file.
func (u *User) Contact(method ContactMethod) string {
	switch method {
	case ContactQQ:
		return u.QQ
	case ContactWechat:
		return u.Wechat
	case ContactPhone:
		return u.Phone
	default:
		return ""
	}
}

// Session is the cached login session, stored under
// "UserSession:<sessionId>".
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterUserRequest represents a user registration request.
type RegisterUserRequest struct {
	Nickname string `json:"nickname" binding:"required,min=1,max=50"`
	QQ       string `json:"qq" binding:"max=20"`
	Wechat   string `json:"wechat" binding:"max=50"`
	Phone    string `json:"phone" binding:"max=20"`
}

// UpdateContactRequest updates a user's contact channels. Only non-nil
// fields are applied.
type UpdateContactRequest struct {
	QQ     *string `json:"qq"`
	Wechat *string `json:"wechat"`
	Phone  *string `json:"phone"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Phone  string `json:"phone"`
}

// LoginResponse carries the minted session token.
type LoginResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}
