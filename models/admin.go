package models

import "time"

// AdminLoginRequest is the body of the admin login endpoint.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateBlockRequest declares a new availability window.
type CreateBlockRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
	Label string `json:"label"`
}

// AdminSession is returned by a successful admin login.
type AdminSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
