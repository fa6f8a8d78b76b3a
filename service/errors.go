package service

import "errors"

// Error classes. Handlers map these to HTTP statuses; the service layer
// never sees HTTP.
type ErrorClass int

const (
	ClassNotFound ErrorClass = iota
	ClassConflict
	ClassForbidden
	ClassValidation
	ClassInternal
)

// Error is a domain failure with a class and a caller-facing message.
type Error struct {
	Class   ErrorClass
	Message string
}

func (e *Error) Error() string { return e.Message }

func notFound(message string) *Error   { return &Error{Class: ClassNotFound, Message: message} }
func conflict(message string) *Error   { return &Error{Class: ClassConflict, Message: message} }
func forbidden(message string) *Error  { return &Error{Class: ClassForbidden, Message: message} }
func validation(message string) *Error { return &Error{Class: ClassValidation, Message: message} }
func internal(message string) *Error   { return &Error{Class: ClassInternal, Message: message} }

var (
	ErrUserNotFound    = notFound("user not found")
	ErrRequestNotFound = notFound("friend request not found")

	ErrSelfRequest   = forbidden("cannot send a friend request to yourself")
	ErrSelfBlock     = forbidden("cannot block yourself")
	ErrPrivacyDenied = forbidden("this user does not accept friend requests from you")
	ErrNotFriends    = forbidden("you are not friends with this user")
	ErrYouBlocked    = forbidden("you have blocked this user")
	ErrBlockedByPeer = forbidden("this user has blocked you")

	ErrAlreadyFriends   = conflict("already friends")
	ErrDuplicateRequest = conflict("friend request already sent")
	ErrAlreadyBlocked   = conflict("user already blocked")
	ErrNotBlocked       = conflict("user is not blocked")
)

// AsServiceError extracts the typed error, if any.
func AsServiceError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
