package personal

import "errors"

var (
	ErrItemNotFound = errors.New("personal item not found")
	ErrNotOwner     = errors.New("item is not owned by user")
)
