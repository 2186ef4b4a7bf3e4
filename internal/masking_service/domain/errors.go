package domain

import "errors"

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicateCode indicates the masks.code unique constraint fired.
	ErrDuplicateCode = errors.New("mask code already exists")
	// ErrCodeSpaceExhausted indicates no unique 4-digit code could be
	// allocated within the bounded number of attempts.
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique code")
	// ErrSwitchWrite indicates a switch database write action failed;
	// nothing was persisted locally.
	ErrSwitchWrite = errors.New("switch write failed")
	// ErrMirrorPersist indicates the switch writes succeeded but the local
	// mirror insert failed: the mapping is live in the switch but unaudited.
	ErrMirrorPersist = errors.New("mask mirror persistence failed")
	// ErrNoPeersFound indicates a well-formed status response with zero
	// peer entries, distinct from a malformed or error-flagged response.
	ErrNoPeersFound = errors.New("no peers found")
	// ErrSwitchResponse indicates the switch flagged the response as an error.
	ErrSwitchResponse = errors.New("switch returned an error response")
)
