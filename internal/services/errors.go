// Package services defines the business logic for assistant conversations,
// bot gating, and feedback. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrIdentityRequired is returned when a request does not carry a usable
	// end-user identity.
	ErrIdentityRequired = errors.New("identity is required")

	// ErrEmptyMessage is returned when an inbound request contains an empty
	// message text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when an inbound message exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("message too long")

	// ErrInvalidFeedback is returned when a feedback value is outside the
	// allowed set (currently -1 or 1).
	ErrInvalidFeedback = errors.New("feedback value must be -1 or 1")

	// ErrReplyNotFound indicates that the chat log row being rated does not
	// exist.
	ErrReplyNotFound = errors.New("reply not found")

	// ErrForbiddenFeedback is returned when feedback targets a row that is not
	// an assistant reply, or one belonging to a different identity.
	ErrForbiddenFeedback = errors.New("cannot leave feedback on this message")

	// ErrDuplicateFeedback is returned when an identity attempts to rate a
	// reply it has already rated.
	ErrDuplicateFeedback = errors.New("feedback already exists")
)
