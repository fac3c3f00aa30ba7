package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	lmsdomain "github.com/devhb1/FrappeLms-sub002/internal/lms/domain"
)

// Service is the durable retry queue.
type Service interface {
	Enqueue(ctx context.Context, enrollmentID snowflake.ID, req lmsdomain.SyncRequest, lastError string) (snowflake.ID, error)
	RunBatch(ctx context.Context) (*BatchStats, error)
	Health(ctx context.Context) (*Health, error)
}
