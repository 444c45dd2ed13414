package service

import (
	"context"

	"shareminder/internal/domain/constant"
)

// ShareClient hands content to one target platform. A returned error means
// the platform was unavailable or refused the content; it is not fatal to
// the reminder.
type ShareClient interface {
	Share(ctx context.Context, photoReference *string, title, description string) error
}

// ShareRegistry maps each platform to the client that serves it. A flagged
// target with no registered client counts as a failed hand-off.
type ShareRegistry map[constant.Platform]ShareClient
