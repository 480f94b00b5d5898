package proposal

import "errors"

var (
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrItemNotFound       = errors.New("shared item not found")
	ErrItemSuppressed     = errors.New("item was deleted by the recipient and cannot be re-added")
	ErrNoRecipients       = errors.New("at least one recipient is required")
	ErrInvalidItemType    = errors.New("invalid item type")
	ErrInvalidState       = errors.New("proposal state does not allow this transition")
	ErrInvalidAction      = errors.New("invalid proposal action")
	ErrKeyRequired        = errors.New("idempotency key is required")
	ErrKeyPayloadMismatch = errors.New("idempotency key already used with a different request")
	ErrActionInProgress   = errors.New("operation is being processed")
)
