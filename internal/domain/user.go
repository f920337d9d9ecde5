package domain

import "time"

type User struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type ValidateUserRequest struct {
	Username string `json:"username"`
}
