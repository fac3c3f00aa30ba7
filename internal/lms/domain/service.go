package domain

import (
	"context"
	"errors"
)

var (
	// ErrSyncUnavailable covers transport failures and LMS 5xx
	// responses. These are worth retrying.
	ErrSyncUnavailable = errors.New("lms_unavailable")
	// ErrSyncRejected means the LMS understood the request and said
	// no. Retrying still happens because rejections have been observed
	// to clear once the LMS catches up on course publishing.
	ErrSyncRejected = errors.New("lms_rejected")

	ErrMissingConfig = errors.New("lms_not_configured")
)

// Client pushes paid enrollments into the LMS.
type Client interface {
	Sync(ctx context.Context, req SyncRequest) (*SyncResult, error)
}
