// Package errs holds the error taxonomy shared by services and transports.
//
// Services return the sentinels below (possibly wrapped); transports classify them
// with KindOf and never forward the text of an unclassified error to a client.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthenticated
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a classified, client-safe error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

var (
	ErrMissingFields     = newErr(KindValidation, "spot_id and email are required")
	ErrInvalidEmail      = newErr(KindValidation, "please enter a valid email address (example@email.com)")
	ErrInvalidSpot       = newErr(KindValidation, "invalid spot id")
	ErrInvalidTicketID   = newErr(KindValidation, "invalid ticket id")
	ErrSpotNameRequired  = newErr(KindValidation, "spot_name is required")
	ErrMissingCredential = newErr(KindValidation, "username and password are required")
	ErrInvalidBody       = newErr(KindValidation, "invalid request body")

	ErrSpotNotFound   = newErr(KindNotFound, "spot not found")
	ErrTicketNotFound = newErr(KindNotFound, "ticket not found")
	ErrEmailNotFound  = newErr(KindNotFound, "no record found for this email")
	ErrNotRedeemable  = newErr(KindNotFound, "no redeemable ticket found")

	ErrAlreadyClaimed           = newErr(KindConflict, "a ticket has already been claimed with this email")
	ErrAlreadyRedeemedElsewhere = newErr(KindConflict, "this email has already redeemed its lottery chance; each email can redeem only once")

	ErrUnauthenticated = newErr(KindUnauthenticated, "admin login required")
	ErrUnauthorized    = newErr(KindUnauthorized, "invalid username or password")

	ErrIdentifierExhausted = newErr(KindInternal, "failed to generate a unique spot id, please retry")
	ErrSerialCollision     = newErr(KindInternal, "system busy, please try again later")
)

// AlreadyClaimedError reports the spot of the visitor's earlier claim.
// It matches ErrAlreadyClaimed under errors.Is.
type AlreadyClaimedError struct {
	SpotName string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("you have already claimed your lottery chance at %q; each person can claim only once", e.SpotName)
}

func (e *AlreadyClaimedError) Is(target error) bool { return target == ErrAlreadyClaimed }

// KindOf classifies err. Anything not produced by this package is internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var ac *AlreadyClaimedError
	if errors.As(err, &ac) {
		return KindConflict
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-safe message for err, or fallback for internal errors.
func Message(err error, fallback string) string {
	if err == nil || KindOf(err) == KindInternal {
		return fallback
	}
	var ac *AlreadyClaimedError
	if errors.As(err, &ac) {
		return ac.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return fallback
}
