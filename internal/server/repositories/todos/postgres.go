// Package todos provides the PostgreSQL-backed, owner-scoped repository for
// todos and their items.
package todos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/copypaster/server/internal/dbx"
	"github.com/copypaster/server/internal/server/models"
	"github.com/copypaster/server/internal/shared"
)

// PostgresRepository implements todo storage over a dbx.DBTX
// (*sql.DB or *sql.Tx). UpdateOwned issues several statements; run it inside
// dbx.WithTx for atomicity.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	query := `
		INSERT INTO todos (user_id, title, target_date)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, todo.UserID, todo.Title, todo.TargetDate).
		Scan(&todo.ID, &todo.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	for i, item := range todo.Items {
		if err := r.insertItem(ctx, todo.ID, i, item); err != nil {
			return nil, err
		}
	}

	return r.FindOwned(ctx, todo.ID, todo.UserID)
}

func (r *PostgresRepository) insertItem(ctx context.Context, todoID string, position int, item models.Item) error {
	query := `
		INSERT INTO items (id, todo_id, position, key, value, name, notes, points,
			links, images, status, target_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, todoID, position, item.Key, item.Value, item.Name, item.Notes, item.Points,
		marshalList(item.Links), marshalList(item.Images), item.Status, item.TargetDate, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListOwned(ctx context.Context, ownerID string) ([]*models.Todo, error) {
	query := `
		SELECT id, user_id, title, target_date, created_at
		FROM todos
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Todo
	for rows.Next() {
		todo := &models.Todo{}
		if err := rows.Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.TargetDate, &todo.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	for _, todo := range result {
		if todo.Items, err = r.loadItems(ctx, todo.ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *PostgresRepository) FindOwned(ctx context.Context, id, ownerID string) (*models.Todo, error) {
	query := `
		SELECT id, user_id, title, target_date, created_at
		FROM todos
		WHERE id = $1 AND user_id = $2
	`
	todo := &models.Todo{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).
		Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.TargetDate, &todo.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if todo.Items, err = r.loadItems(ctx, todo.ID); err != nil {
		return nil, err
	}
	return todo, nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, todoID string) ([]models.Item, error) {
	query := `
		SELECT id, key, value, name, notes, points, links, images, status, target_date, created_at
		FROM items
		WHERE todo_id = $1
		ORDER BY position, created_at
	`
	rows, err := r.db.QueryContext(ctx, query, todoID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		var links, images string
		if err := rows.Scan(
			&item.ID, &item.Key, &item.Value, &item.Name, &item.Notes, &item.Points,
			&links, &images, &item.Status, &item.TargetDate, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if item.Links, err = unmarshalList(links); err != nil {
			return nil, fmt.Errorf("links decode error: %w", err)
		}
		if item.Images, err = unmarshalList(images); err != nil {
			return nil, fmt.Errorf("images decode error: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

// UpdateOwned applies a partial update to the todo matched by (id, ownerID).
// When the patch carries an item list, that list becomes the todo's item set:
// listed items are patched field-wise, unlisted ones are removed. Fields left
// nil in an item patch keep their stored value, so an omitted value field
// never overwrites the stored envelope.
func (r *PostgresRepository) UpdateOwned(ctx context.Context, id, ownerID string, patch *models.TodoPatch) (*models.Todo, error) {
	var matched string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM todos WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, ownerID).
		Scan(&matched)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if patch.Title != nil || patch.TargetDate != nil {
		query := `
			UPDATE todos
			SET title = COALESCE($3, title), target_date = COALESCE($4, target_date)
			WHERE id = $1 AND user_id = $2
		`
		if _, err := r.db.ExecContext(ctx, query, id, ownerID, patch.Title, patch.TargetDate); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}

	if patch.Items != nil {
		if err := r.replaceItems(ctx, id, *patch.Items); err != nil {
			return nil, err
		}
	}

	return r.FindOwned(ctx, id, ownerID)
}

func (r *PostgresRepository) replaceItems(ctx context.Context, todoID string, items []models.ItemPatch) error {
	if len(items) == 0 {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE todo_id = $1`, todoID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	}

	placeholders := make([]string, 0, len(items))
	args := []any{todoID}
	for i, item := range items {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, item.ID)
	}
	query := fmt.Sprintf(
		`DELETE FROM items WHERE todo_id = $1 AND id NOT IN (%s)`,
		strings.Join(placeholders, ", "),
	)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for i, item := range items {
		if err := r.upsertItem(ctx, todoID, i, item); err != nil {
			return err
		}
	}
	return nil
}

// upsertItem inserts the item or patches the existing row. The conflict
// branch only fires for rows of the same todo, so an id colliding with
// another todo's item cannot be hijacked.
func (r *PostgresRepository) upsertItem(ctx context.Context, todoID string, position int, item models.ItemPatch) error {
	query := `
		INSERT INTO items (id, todo_id, position, key, value, name, notes, points,
			links, images, status, target_date, created_at)
		VALUES ($1, $2, $3,
			COALESCE($4, ''), COALESCE($5, ''), COALESCE($6, ''), COALESCE($7, ''), COALESCE($8, 0),
			COALESCE($9::jsonb, '[]'::jsonb), COALESCE($10::jsonb, '[]'::jsonb),
			COALESCE($11, 'NOT_STARTED'), $12, COALESCE($13, now()))
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			key = COALESCE($4, items.key),
			value = COALESCE($5, items.value),
			name = COALESCE($6, items.name),
			notes = COALESCE($7, items.notes),
			points = COALESCE($8, items.points),
			links = COALESCE($9::jsonb, items.links),
			images = COALESCE($10::jsonb, items.images),
			status = COALESCE($11, items.status),
			target_date = COALESCE($12, items.target_date),
			created_at = COALESCE($13, items.created_at)
		WHERE items.todo_id = EXCLUDED.todo_id
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, todoID, position, item.Key, item.Value, item.Name, item.Notes, item.Points,
		marshalListPtr(item.Links), marshalListPtr(item.Images), item.Status, item.TargetDate, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteOwned(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return shared.ErrorNotFound
	}
	return nil
}

// DeleteAllOwned removes every todo (and, via cascade, every item) owned by
// ownerID.
func (r *PostgresRepository) DeleteAllOwned(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE user_id = $1`, ownerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func marshalList(list []string) string {
	if list == nil {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func marshalListPtr(list []string) *string {
	if list == nil {
		return nil
	}
	s := marshalList(list)
	return &s
}

func unmarshalList(s string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, err
	}
	return list, nil
}
