package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	ArchiveJob(ctx context.Context, job *models.ArchivedJob) error
	ListArchivedJobs(ctx context.Context, filter ArchiveFilter) ([]*models.ArchivedJob, int, error)
	GetArchivedJob(ctx context.Context, id uuid.UUID) (*models.ArchivedJob, error)
}

// ArchiveFilter narrows ListArchivedJobs. Zero values match everything.
type ArchiveFilter struct {
	Type   string
	Status models.JobStatus
	Page   int
	Limit  int
}
