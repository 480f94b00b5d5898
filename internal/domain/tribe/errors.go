package tribe

import "errors"

var (
	ErrTribeNotFound      = errors.New("tribe not found")
	ErrTribeDeleted       = errors.New("tribe has been deleted")
	ErrMemberNotFound     = errors.New("member not found")
	ErrRequestNotFound    = errors.New("member request not found")
	ErrAlreadyMember      = errors.New("user is already a member or has a pending invite")
	ErrRequestExists      = errors.New("a pending request for this user already exists")
	ErrRequestResolved    = errors.New("member request already resolved")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotOwner           = errors.New("only the tribe owner can do this")
	ErrOwnerCannotLeave   = errors.New("owner must delete the tribe or transfer ownership")
	ErrInvalidScope       = errors.New("invalid management scope")
	ErrInvalidCategory    = errors.New("invalid item category")
	ErrInviteNotPending   = errors.New("invitation is not pending")
	ErrLinkNotFound       = errors.New("invite link not found")
	ErrLinkExpired        = errors.New("invite link has expired")
	ErrLinkExhausted      = errors.New("invite link has no uses left")
	ErrCannotEditOwnPerms = errors.New("owner cannot edit their own permissions")
)
