package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ninamar-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(productID uuid.UUID, value string, qty int) Item {
	return Item{
		ProductID:   productID,
		ProductName: "Collar Sol",
		ProductSlug: "collar-sol",
		BasePrice:   decimal.NewFromInt(40000),
		Customizations: models.CustomizationDetails{
			{OptionName: "Color", ValueName: value, AdditionalPrice: decimal.NewFromInt(5000)},
		},
		Quantity:  qty,
		UnitPrice: decimal.NewFromInt(45000),
	}
}

func TestCart_AddMergesIdenticalLines(t *testing.T) {
	c := New("s1")
	pid := uuid.New()

	first, err := c.Add(line(pid, "Oro", 1))
	require.NoError(t, err)
	merged, err := c.Add(line(pid, "Oro", 2))
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)

	_, err = c.Add(line(pid, "Plata", 1))
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)

	engraved := line(pid, "Oro", 1)
	text := "Ana"
	engraved.Engraving = &text
	_, err = c.Add(engraved)
	require.NoError(t, err)
	assert.Len(t, c.Items, 3)
	assert.Equal(t, 5, c.Count())
}

func TestCart_SubtotalAndMutations(t *testing.T) {
	c := New("s1")
	item, err := c.Add(line(uuid.New(), "Oro", 2))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(90000).Equal(c.Subtotal()))

	require.NoError(t, c.UpdateQuantity(item.ID, 1))
	assert.True(t, decimal.NewFromInt(45000).Equal(c.Subtotal()))

	assert.ErrorIs(t, c.UpdateQuantity(item.ID, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, c.UpdateQuantity("missing", 1), ErrItemNotFound)
	assert.ErrorIs(t, c.Remove("missing"), ErrItemNotFound)

	require.NoError(t, c.Remove(item.ID))
	assert.Empty(t, c.Items)
	assert.True(t, c.Subtotal().IsZero())

	_, err = c.Add(line(uuid.New(), "Oro", 0))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

type memoryBackend struct {
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryBackend) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryBackend) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return m.err
}

func TestStore_LoadSaveClear(t *testing.T) {
	backend := newMemoryBackend()
	store := NewStore(backend, 0)
	ctx := context.Background()

	c, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = c.Add(line(uuid.New(), "Oro", 2))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, c))
	assert.Equal(t, DefaultTTL, backend.ttls["cart:abc"])

	loaded, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.True(t, decimal.NewFromInt(90000).Equal(loaded.Subtotal()))
	assert.Equal(t, "Oro", loaded.Items[0].Customizations[0].ValueName)

	require.NoError(t, store.Clear(ctx, "abc"))
	empty, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}

func TestStore_BackendError(t *testing.T) {
	backend := newMemoryBackend()
	backend.err = errors.New("connection refused")
	store := NewStore(backend, time.Hour)

	_, err := store.Load(context.Background(), "abc")
	assert.Error(t, err)
	assert.Error(t, store.Save(context.Background(), New("abc")))
}
