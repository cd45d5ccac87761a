package archive

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	GetByControlID(ctx context.Context, controlID string) (*Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Record, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error)
}
