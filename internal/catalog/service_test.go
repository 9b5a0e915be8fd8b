package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/region-catalog/internal/model"
	"github.com/vyrodovalexey/region-catalog/internal/store"
)

type recordingPublisher struct {
	events []model.ItemEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.ItemEvent) error {
	p.events = append(p.events, event)
	return p.err
}

// failingSwapStore rejects every order swap.
type failingSwapStore struct {
	*store.MemoryStore
}

func (s failingSwapStore) SwapOrder(context.Context, model.Item, model.Item) error {
	return errors.New("transaction aborted")
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *recordingPublisher) {
	t.Helper()
	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	return NewService(st, st, pub, zap.NewNop()), st, pub
}

func TestService_AddUpdateDelete(t *testing.T) {
	// Arrange
	svc, st, pub := newTestService(t)
	ctx := context.Background()

	// Act
	created, err := svc.AddItem(ctx, model.Item{Name: "Kombi", Regions: []string{"north"}, Price: decimal.NewFromInt(5)})
	require.NoError(t, err)

	created.Name = "Kombi 2"
	updated, err := svc.UpdateItem(ctx, *created)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(ctx, created.ID))

	// Assert
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Kombi 2", updated.Name)
	_, err = st.Get(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.Len(t, pub.events, 3)
	assert.Equal(t, model.ItemCreated, pub.events[0].Type)
	assert.Equal(t, model.ItemUpdated, pub.events[1].Type)
	assert.Equal(t, model.ItemDeleted, pub.events[2].Type)
	for _, e := range pub.events {
		assert.Equal(t, created.ID, e.ItemID)
	}
}

func TestService_ErrorsAreNotPublished(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateItem(ctx, model.Item{ID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = svc.DeleteItem(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Empty(t, pub.events)
}

func TestService_PublishFailureDoesNotFailMutation(t *testing.T) {
	svc, _, pub := newTestService(t)
	pub.err = errors.New("bus down")

	created, err := svc.AddItem(context.Background(), model.Item{Name: "x"})

	require.NoError(t, err)
	assert.NotNil(t, created)
}

func TestService_NilPublisher(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st, st, nil, zap.NewNop())

	_, err := svc.AddItem(context.Background(), model.Item{Name: "x"})

	assert.NoError(t, err)
}

func TestService_SwapOrder(t *testing.T) {
	svc, st, pub := newTestService(t)
	ctx := context.Background()
	a, err := st.Create(ctx, &model.Item{Name: "a", Order: 1})
	require.NoError(t, err)
	b, err := st.Create(ctx, &model.Item{Name: "b", Order: 2})
	require.NoError(t, err)

	require.NoError(t, svc.SwapOrder(ctx, *a, *b))

	gotA, _ := st.Get(ctx, a.ID)
	gotB, _ := st.Get(ctx, b.ID)
	assert.Equal(t, 2, gotA.Order)
	assert.Equal(t, 1, gotB.Order)
	assert.Len(t, pub.events, 2)
}

func TestService_NewManager(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SeedRegions(ctx, []model.Region{{ID: "north", Name: "Nord"}}))
	_, err := st.Create(ctx, &model.Item{Name: "Alpha", Regions: []string{"north"}, Order: 1})
	require.NoError(t, err)
	_, err = st.Create(ctx, &model.Item{Name: "Beta", Regions: []string{"north"}, Order: 2})
	require.NoError(t, err)

	m, err := svc.NewManager(ctx, &RequestDialog{}, "de")
	require.NoError(t, err)
	m.SelectRegion("north")

	assert.Equal(t, []string{"Alpha", "Beta"}, names(m.Visible()))
	assert.Equal(t, []model.Region{{ID: "north", Name: "Nord"}}, m.View().Regions)

	// Full round trip through the service: move Beta above Alpha.
	require.NoError(t, m.MoveUp(ctx, m.Visible()[1].ID))
	items, err := svc.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, items[0].Order)
	assert.Equal(t, 1, items[1].Order)
}

func TestService_NewManager_StoreError(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st, st, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.NewManager(ctx, &RequestDialog{}, "de")

	assert.Error(t, err)
}

func TestService_SwapFailureAlerts(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	_, err := st.Create(ctx, &model.Item{Name: "Alpha", Regions: []string{"north"}, Order: 1})
	require.NoError(t, err)
	_, err = st.Create(ctx, &model.Item{Name: "Beta", Regions: []string{"north"}, Order: 2})
	require.NoError(t, err)

	svc := NewService(failingSwapStore{st}, st, nil, zap.NewNop())
	dialog := &RequestDialog{}
	m, err := svc.NewManager(ctx, dialog, "de")
	require.NoError(t, err)
	m.SelectRegion("north")

	err = m.MoveDown(ctx, m.Visible()[0].ID)

	require.Error(t, err)
	assert.Equal(t, MsgOrderUpdateFailed, dialog.LastAlert)
	assert.Equal(t, []int{2, 1}, orders(m.Items()))

	stored, err := st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, orders(stored))
}

func TestService_SeedRegions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedRegions(ctx, []model.Region{
		{ID: "south", Name: "Süd"},
		{ID: "north", Name: "Nord"},
	}))
	require.NoError(t, svc.SeedRegions(ctx, []model.Region{{ID: "north", Name: "Norden"}}))

	regions, err := svc.Regions(ctx)
	require.NoError(t, err)
	assert.Len(t, regions, 2)

	r, err := svc.Region(ctx, "north")
	require.NoError(t, err)
	assert.Equal(t, "Norden", r.Name)

	_, err = svc.Region(ctx, "west")
	assert.ErrorIs(t, err, store.ErrRegionNotFound)
}

func TestService_Ping(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.NoError(t, svc.Ping(context.Background()))
}
