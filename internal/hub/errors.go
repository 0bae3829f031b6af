package hub

import "errors"

var (
	ErrInvalidMessage          = errors.New("invalid message")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrDuplicateName           = errors.New("duplicate name")
	ErrMaxSessionsExceeded     = errors.New("max sessions exceeded")
	ErrMaxUsersExceeded        = errors.New("max users exceeded")
	ErrUnknownUserID           = errors.New("unknown user id")
	ErrUserKicked              = errors.New("user kicked")
	ErrConnectionNotClosed     = errors.New("connection not closed after hold")
)
