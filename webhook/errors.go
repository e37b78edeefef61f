package webhook

import "errors"

var (
	ErrNotFound      = errors.New("webhook not found")
	ErrInvalidLimit  = errors.New("limit must be between 1 and 100")
	ErrInvalidCursor = errors.New("cursor must be a webhook id")
)
