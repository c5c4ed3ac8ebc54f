package todos

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copypaster/server/internal/cryptox"
	"github.com/copypaster/server/internal/logging"
	"github.com/copypaster/server/internal/server/models"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewCodec(cryptox.NewEnvelopeCipher("codec-test-secret", logger))
}

func strPtr(s string) *string { return &s }

func TestEncodeItems_EncryptsPresentValues(t *testing.T) {
	c := newTestCodec(t)

	items := []models.ItemPatch{
		{ID: "i1", Value: strPtr("secret-value")},
		{ID: "i2"}, // absent value stays absent
	}

	encoded, err := c.EncodeItems(items)
	require.NoError(t, err)
	require.Len(t, encoded, 2)

	require.NotNil(t, encoded[0].Value)
	assert.NotEqual(t, "secret-value", *encoded[0].Value)
	assert.Contains(t, *encoded[0].Value, ":")

	assert.Nil(t, encoded[1].Value)
}

func TestEncodeItems_NewItemDefaults(t *testing.T) {
	c := newTestCodec(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	encoded, err := c.EncodeItems([]models.ItemPatch{{Value: strPtr("v")}})
	require.NoError(t, err)

	item := encoded[0]
	assert.NotEmpty(t, item.ID)
	require.NotNil(t, item.CreatedAt)
	assert.Equal(t, fixed, *item.CreatedAt)
	require.NotNil(t, item.Status)
	assert.Equal(t, models.StatusNotStarted, *item.Status)
}

func TestEncodeItems_ExistingItemUntouched(t *testing.T) {
	c := newTestCodec(t)

	status := models.StatusCompleted
	encoded, err := c.EncodeItems([]models.ItemPatch{{ID: "existing", Status: &status}})
	require.NoError(t, err)

	assert.Equal(t, "existing", encoded[0].ID)
	assert.Nil(t, encoded[0].CreatedAt)
	assert.Equal(t, models.StatusCompleted, *encoded[0].Status)
}

func TestEncodeItems_TargetDateUTC(t *testing.T) {
	c := newTestCodec(t)

	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2025, 6, 1, 15, 0, 0, 0, loc)

	encoded, err := c.EncodeItems([]models.ItemPatch{{ID: "i1", TargetDate: &local}})
	require.NoError(t, err)

	require.NotNil(t, encoded[0].TargetDate)
	assert.Equal(t, time.UTC, encoded[0].TargetDate.Location())
	assert.True(t, encoded[0].TargetDate.Equal(local))
}

func TestDecodeTodo_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	ctx := context.Background()

	encoded, err := c.EncodeItems([]models.ItemPatch{{ID: "i1", Value: strPtr("api-token-123")}})
	require.NoError(t, err)

	todo := &models.Todo{Items: []models.Item{{ID: "i1", Value: *encoded[0].Value, Status: models.StatusInProgress}}}
	c.DecodeTodo(ctx, todo)

	assert.Equal(t, "api-token-123", todo.Items[0].Value)
	assert.Equal(t, models.StatusInProgress, todo.Items[0].Status)
}

func TestDecodeTodo_Defaults(t *testing.T) {
	c := newTestCodec(t)

	// a legacy plaintext value passes through unchanged, empty status defaults
	todo := &models.Todo{Items: []models.Item{{ID: "i1", Value: "plain note"}}}
	c.DecodeTodo(context.Background(), todo)

	assert.Equal(t, "plain note", todo.Items[0].Value)
	assert.Equal(t, models.StatusNotStarted, todo.Items[0].Status)
}

func TestDecodeTodo_DifferentCodecsSameSecret(t *testing.T) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	enc := NewCodec(cryptox.NewEnvelopeCipher("shared-secret", logger))
	dec := NewCodec(cryptox.NewEnvelopeCipher("shared-secret", logger))

	encoded, err := enc.EncodeItems([]models.ItemPatch{{ID: "i1", Value: strPtr("portable")}})
	require.NoError(t, err)

	todo := &models.Todo{Items: []models.Item{{ID: "i1", Value: *encoded[0].Value, Status: models.StatusNotStarted}}}
	dec.DecodeTodo(context.Background(), todo)

	assert.Equal(t, "portable", todo.Items[0].Value)
	assert.False(t, strings.Contains(todo.Items[0].Value, ":"))
}
