package handler

import "time"

type authRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type authResponse struct {
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

type messageOnly struct {
	Message string `json:"message"`
}

type meResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type chatRequest struct {
	Message  string `json:"message"`
	ModelKey string `json:"modelKey"`
}

type messageResponse struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
