package todos

import (
	"context"

	"github.com/copypaster/server/internal/server/models"
)

// Repository is the owner-scoped persistence surface for todos. Every
// method that touches an existing todo requires the caller's ownerID and
// treats "exists but owned by someone else" exactly like "does not exist".
type Repository interface {
	Create(ctx context.Context, todo *models.Todo) (*models.Todo, error)
	ListOwned(ctx context.Context, ownerID string) ([]*models.Todo, error)
	FindOwned(ctx context.Context, id, ownerID string) (*models.Todo, error)
	UpdateOwned(ctx context.Context, id, ownerID string, patch *models.TodoPatch) (*models.Todo, error)
	DeleteOwned(ctx context.Context, id, ownerID string) error
	DeleteAllOwned(ctx context.Context, ownerID string) error
}
