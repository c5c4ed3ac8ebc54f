package todos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/copypaster/server/internal/cryptox"
	"github.com/copypaster/server/internal/dbx"
	"github.com/copypaster/server/internal/logging"
	"github.com/copypaster/server/internal/server/models"
	"github.com/copypaster/server/internal/server/repositories/repomanager"
	"github.com/copypaster/server/internal/shared"
)

// CreateRequest is the payload for creating a todo. Its items go through the
// same encode pass as update patches.
type CreateRequest struct {
	Title      string             `json:"title"`
	TargetDate *time.Time         `json:"targetDate"`
	Items      []models.ItemPatch `json:"items"`
}

// Service implements the todo operations. Every operation takes the
// caller's ownerID resolved by the HTTP layer, and all persistence access is
// scoped by it.
type Service struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	codec  *Codec
	logger logging.Logger
}

func NewService(db *sql.DB, repos repomanager.RepositoryManager, cipher *cryptox.EnvelopeCipher, logger logging.Logger) *Service {
	return &Service{
		db:     db,
		repos:  repos,
		codec:  NewCodec(cipher),
		logger: logger.With("module", "todo_service"),
	}
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*models.Todo, error) {
	list, err := s.repos.Todos(s.db).ListOwned(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, todo := range list {
		s.codec.DecodeTodo(ctx, todo)
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id, ownerID string) (*models.Todo, error) {
	todo, err := s.repos.Todos(s.db).FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	s.codec.DecodeTodo(ctx, todo)
	return todo, nil
}

func (s *Service) Create(ctx context.Context, ownerID string, req *CreateRequest) (*models.Todo, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", shared.ErrorValidation)
	}
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	// items of a new todo are always new: ids are server-assigned
	for i := range req.Items {
		req.Items[i].ID = ""
	}

	encoded, err := s.codec.EncodeItems(req.Items)
	if err != nil {
		return nil, fmt.Errorf("error encoding items: %w", err)
	}

	todo := &models.Todo{
		UserID:     ownerID,
		Title:      req.Title,
		TargetDate: req.TargetDate,
		Items:      materializeItems(encoded),
	}

	// the todo row and its items land together or not at all
	var created *models.Todo
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repos.Todos(tx).Create(ctx, todo)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.codec.DecodeTodo(ctx, created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id, ownerID string, patch *models.TodoPatch) (*models.Todo, error) {
	if patch.Title != nil && *patch.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", shared.ErrorValidation)
	}
	if patch.Items != nil {
		if err := validateItems(*patch.Items); err != nil {
			return nil, err
		}

		encoded, err := s.codec.EncodeItems(*patch.Items)
		if err != nil {
			return nil, fmt.Errorf("error encoding items: %w", err)
		}
		patch.Items = &encoded
	}

	var updated *models.Todo
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		updated, err = s.repos.Todos(tx).UpdateOwned(ctx, id, ownerID, patch)
		return err
	})
	if err != nil {
		return nil, err
	}

	// decode the persisted result so the response never echoes ciphertext
	s.codec.DecodeTodo(ctx, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	return s.repos.Todos(s.db).DeleteOwned(ctx, id, ownerID)
}

func validateItems(items []models.ItemPatch) error {
	for _, item := range items {
		if item.Status != nil && !item.Status.Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrorValidation, *item.Status)
		}
		if item.Points != nil && *item.Points < 0 {
			return fmt.Errorf("%w: points must not be negative", shared.ErrorValidation)
		}
	}
	return nil
}

// materializeItems turns fully-encoded patches into item rows for insertion.
// Create payload items are all new, so every field has been defaulted by the
// encode pass.
func materializeItems(patches []models.ItemPatch) []models.Item {
	items := make([]models.Item, len(patches))
	for i, p := range patches {
		item := models.Item{
			ID:         p.ID,
			Links:      p.Links,
			Images:     p.Images,
			TargetDate: p.TargetDate,
		}
		if p.Key != nil {
			item.Key = *p.Key
		}
		if p.Value != nil {
			item.Value = *p.Value
		}
		if p.Name != nil {
			item.Name = *p.Name
		}
		if p.Notes != nil {
			item.Notes = *p.Notes
		}
		if p.Points != nil {
			item.Points = *p.Points
		}
		if p.Status != nil {
			item.Status = *p.Status
		} else {
			item.Status = models.StatusNotStarted
		}
		if p.CreatedAt != nil {
			item.CreatedAt = *p.CreatedAt
		}
		items[i] = item
	}
	return items
}
