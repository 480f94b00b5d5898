package suppression

import "errors"

var (
	ErrOriginRequired = errors.New("origin item id is required")
	ErrUserRequired   = errors.New("user id is required")
)
