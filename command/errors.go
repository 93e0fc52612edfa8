package command

import (
	"errors"
	"fmt"
)

// Kind classifies why a command was rejected.
type Kind string

const (
	KindSchema         Kind = "SCHEMA"
	KindLength         Kind = "LENGTH"
	KindSession        Kind = "SESSION"
	KindAuthN          Kind = "AUTHN"
	KindAuthz          Kind = "AUTHZ"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindEmptyInput     Kind = "EMPTY_INPUT"
	KindStoreFailure   Kind = "STORE_FAILURE"
	KindUnknownCommand Kind = "UNKNOWN_COMMAND"
)

// Error is a rejected command. Message is sent to the caller verbatim.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the Kind carried by err. Errors that did not come from this
// package are store failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreFailure
}

func storeFailure(cause error) *Error {
	return &Error{
		Kind:    KindStoreFailure,
		Message: "The database could not complete the request.",
		Cause:   cause,
	}
}

func lengthError(noun, label string, limit int) *Error {
	return newError(KindLength, fmt.Sprintf("The %s isn't of the correct length (0 < len(%s) <= %d).", noun, label, limit))
}

var (
	ErrInvalidPayload = newError(KindSchema, "The JSON file sent didn't contain valid information.")
	ErrUnknownCommand = newError(KindUnknownCommand, "The command sent isn't recognized.")
	ErrSignedOut      = newError(KindSession, "A user must be signed in to access this function.")

	ErrUsernameLength    = lengthError("username", "username", UsernameLimit)
	ErrPasswordLength    = lengthError("password", "password", PasswordLimit)
	ErrChannelNameLength = lengthError("name of the channel", "channel_name", ChannelNameLimit)

	ErrUsernameTaken   = newError(KindConflict, "That username is already taken.")
	ErrBadCredentials  = newError(KindAuthN, "The username/password combination do not exist in the database.")
	ErrNoChannels      = newError(KindNotFound, "No channels exist in the database.")
	ErrChannelExists   = newError(KindConflict, "The specified channel already exists in the database.")
	ErrChannelNotFound = newError(KindNotFound, "The specified channel was not found.")
	ErrNotAdmin        = newError(KindAuthz, "The user trying to delete the channel isn't the admin of the channel.")
	ErrNoChannelsGiven = newError(KindEmptyInput, "No channels were given for the user to join.")
	ErrJoinUnknown     = newError(KindNotFound, "The user is trying to join a channel that doesn't exist.")
	ErrAlreadyJoined   = newError(KindConflict, "The user has already joined one or more of the channels they were trying to join again.")
	ErrNotMember       = newError(KindAuthz, "The user is trying to send a message to a channel they haven't joined yet.")
)
