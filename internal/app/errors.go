package service

import "errors"

var (
	// ErrNotStarted is returned by queries issued before Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrClusterNotFound is returned when a cluster id does not exist in the
	// recomputed window.
	ErrClusterNotFound = errors.New("cluster not found")

	// ErrInvalidWindow is returned for windows wider than the configured maximum.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrNoDataset is returned by Reload when no dataset path is configured.
	ErrNoDataset = errors.New("no dataset configured")
)
