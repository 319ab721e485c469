package model

import "errors"

var (
	// ErrInstanceIDRequired is returned when a registration payload is missing the instance id.
	ErrInstanceIDRequired = errors.New("instance_id is required")

	// ErrNotificationRequired is returned when a registration payload is missing the notification text.
	ErrNotificationRequired = errors.New("notification is required")

	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionTerminal is returned when an operation targets a session that
	// has already left the pending state.
	ErrSessionTerminal = errors.New("session already finalized")

	// ErrNoHookConnection is returned when a response cannot be routed because
	// the agent connection for the session is gone.
	ErrNoHookConnection = errors.New("no live agent connection for session")
)
