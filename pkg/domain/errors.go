// Package domain defines the error taxonomy shared by the core and its stores.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that must react to it, such as the HTTP boundary.
type Kind int

const (
	// KindInternal covers everything that is not a classified domain error.
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindSuspended
	KindInsufficientBalance
	KindConflict
	KindTransientStore
	KindInvariantViolation
)

var kindNames = map[Kind]string{
	KindInternal:            "internal",
	KindValidation:          "validation",
	KindNotFound:            "not_found",
	KindSuspended:           "suspended",
	KindInsufficientBalance: "insufficient_balance",
	KindConflict:            "conflict",
	KindTransientStore:      "transient_store",
	KindInvariantViolation:  "invariant_violation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Code identifies a specific error within a Kind.
type Code string

// Error is a classified domain error. Field names the input the error relates to, if any.
type Error struct {
	Kind    Kind
	Code    Code
	Field   string
	Message string
	Err     error
}

// NewError builds a sentinel error.
func NewError(kind Kind, code Code, field, message string) *Error {
	return &Error{Kind: kind, Code: code, Field: field, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so wrapped copies still satisfy errors.Is
// against the sentinel they were derived from.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// WithField returns a copy of e tied to another input field.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}

// Validation
var (
	ErrInvalidAmount = NewError(KindValidation, "invalid_amount", "amount",
		"Amount must be a positive value with at most two decimal places")
	ErrRecipientRequired = NewError(KindValidation, "recipient_required", "recipient_account",
		"Recipient account is required")
	ErrRecipientNameRequired = NewError(KindValidation, "recipient_name_required", "recipient_name",
		"Recipient name is required for accounts outside the platform")
	ErrSelfTransfer = NewError(KindValidation, "self_transfer", "recipient_account",
		"You cannot send money to your own account")
	ErrNoteTooLong = NewError(KindValidation, "note_too_long", "note",
		"Note must be at most 280 characters")
	ErrQueryRequired = NewError(KindValidation, "query_required", "recipient_account",
		"Query parameter is required")
	ErrFieldsRequired = NewError(KindValidation, "fields_required", "",
		"All fields are required")
	ErrInvalidEmail = NewError(KindValidation, "invalid_email", "email",
		"Please enter a valid email")
	ErrPasswordTooShort = NewError(KindValidation, "password_too_short", "password",
		"Password must be at least 6 characters")
	ErrPasswordMismatch = NewError(KindValidation, "password_mismatch", "password2",
		"Passwords do not match")
	ErrIncorrectEmail = NewError(KindValidation, "incorrect_email", "email",
		"Incorrect email")
	ErrIncorrectPassword = NewError(KindValidation, "incorrect_password", "password",
		"Incorrect password")
)

// NotFound
var (
	ErrAccountNotFound = NewError(KindNotFound, "account_not_found", "",
		"Account not found")
	ErrSenderNotFound = NewError(KindNotFound, "sender_not_found", "email",
		"Sender not found")
	ErrEntryNotFound = NewError(KindNotFound, "entry_not_found", "",
		"Ledger entry not found")
)

// Suspended
var (
	ErrSenderSuspended = NewError(KindSuspended, "sender_suspended", "email",
		"Your account is suspended. If you believe this is a mistake, please contact support")
	ErrRecipientSuspended = NewError(KindSuspended, "recipient_suspended", "recipient_account",
		"Recipient account is unavailable")
	ErrAccountSuspended = NewError(KindSuspended, "account_suspended", "email",
		"Your account is suspended. If you believe this is a mistake, please contact support")
)

// InsufficientBalance
var ErrInsufficientBalance = NewError(KindInsufficientBalance, "insufficient_balance", "amount",
	"Insufficient balance")

// Conflict
var (
	ErrDuplicateKey = NewError(KindConflict, "duplicate_key", "",
		"Duplicate key")
	ErrEmailTaken = NewError(KindConflict, "email_taken", "email",
		"That email is already registered")
	ErrAllocationExhausted = NewError(KindConflict, "allocation_exhausted", "",
		"Could not allocate an account number, please try again")
	ErrIdempotencyKeyReused = NewError(KindConflict, "idempotency_key_reused", "idempotency_key",
		"Idempotency key was already used for a different request")
)

// TransientStore
var ErrTransientStore = NewError(KindTransientStore, "transient_store", "",
	"The service is temporarily unavailable, please retry")

// InvariantViolation
var (
	ErrNegativeBalance = NewError(KindInvariantViolation, "negative_balance", "amount",
		"Operation would make the balance negative")
	ErrInvalidEntry = NewError(KindInvariantViolation, "invalid_entry", "",
		"Ledger entry is malformed")
	ErrInvalidAccountNumber = NewError(KindInvariantViolation, "invalid_account_number", "",
		"Account number is malformed")
)

// DuplicateKey reports a unique-index violation on index. An empty index means the store
// could not tell which index was violated.
func DuplicateKey(index string, cause error) *Error {
	e := ErrDuplicateKey.Wrap(cause)
	e.Field = index
	return e
}

// DuplicateIndex returns the violated index of a DuplicateKey error.
func DuplicateIndex(err error) (string, bool) {
	de, ok := AsError(err)
	if !ok || de.Code != ErrDuplicateKey.Code {
		return "", false
	}
	return de.Field, true
}
