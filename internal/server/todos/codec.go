// Package todos implements the todo service: the field codec that encrypts
// item values on the way into storage and decrypts them on the way out, and
// the operations composing it with the owner-scoped repository.
package todos

import (
	"time"

	"context"

	"github.com/google/uuid"

	"github.com/copypaster/server/internal/cryptox"
	"github.com/copypaster/server/internal/server/models"
)

// Codec applies the envelope cipher across a todo's item collection.
// Encode runs before a write, Decode after every read, so values are stored
// only in envelope form and returned only as plaintext.
type Codec struct {
	cipher *cryptox.EnvelopeCipher
	now    func() time.Time
}

func NewCodec(cipher *cryptox.EnvelopeCipher) *Codec {
	return &Codec{cipher: cipher, now: time.Now}
}

// EncodeItems prepares incoming item patches for persistence. Values present
// in the payload are encrypted; absent values stay nil so the stored
// envelope is left untouched. An item without an id is new: it gets a
// server-assigned id and default createdAt/status. Target dates are
// normalized to UTC.
func (c *Codec) EncodeItems(items []models.ItemPatch) ([]models.ItemPatch, error) {
	encoded := make([]models.ItemPatch, len(items))
	for i, item := range items {
		if item.Value != nil {
			envelope, err := c.cipher.Encrypt(*item.Value)
			if err != nil {
				return nil, err
			}
			item.Value = &envelope
		}

		if item.ID == "" {
			item.ID = uuid.NewString()
			if item.CreatedAt == nil {
				createdAt := c.now().UTC()
				item.CreatedAt = &createdAt
			}
			if item.Status == nil {
				status := models.StatusNotStarted
				item.Status = &status
			}
		}

		if item.TargetDate != nil {
			targetDate := item.TargetDate.UTC()
			item.TargetDate = &targetDate
		}

		encoded[i] = item
	}
	return encoded, nil
}

// DecodeTodo decrypts every item value in place and applies read-side
// defaults, so the caller never sees ciphertext or an empty status.
func (c *Codec) DecodeTodo(ctx context.Context, todo *models.Todo) {
	for i := range todo.Items {
		todo.Items[i].Value = c.cipher.Decrypt(ctx, todo.Items[i].Value)
		if todo.Items[i].Status == "" {
			todo.Items[i].Status = models.StatusNotStarted
		}
	}
}
