package users

import "context"

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// Store returns (nil, nil) from FindUserByID when the user does not exist.
type Store interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
	Put(ctx context.Context, u User) error
}
