// Package service holds the domain logic between the HTTP/WebSocket surface
// and the repositories. Services accept narrow store interfaces so the rules
// can be tested without a database.
package service

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidState     = errors.New("invalid state")
	ErrConflict         = errors.New("conflict")
	ErrNotPublic        = errors.New("room is not public")
	ErrInvalidToken     = errors.New("invalid invite token")
	ErrNotFriends       = errors.New("users are not friends")
	ErrEmptyContent     = errors.New("empty content")
)
