package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/region-catalog/internal/model"
)

type fakeContainer struct {
	added     []model.Item
	updated   []model.Item
	deleted   []string
	addErr    error
	updateErr error
	deleteErr map[string]error
	nextID    int
}

func (f *fakeContainer) AddItem(_ context.Context, item model.Item) (*model.Item, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.nextID++
	item.ID = fmt.Sprintf("new-%d", f.nextID)
	f.added = append(f.added, item)
	return &item, nil
}

func (f *fakeContainer) UpdateItem(_ context.Context, item model.Item) (*model.Item, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, item)
	return &item, nil
}

func (f *fakeContainer) DeleteItem(_ context.Context, id string) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type swapCall struct {
	a, b model.Item
}

type fakeOrders struct {
	calls []swapCall
	err   error
}

func (f *fakeOrders) SwapOrder(_ context.Context, a, b model.Item) error {
	f.calls = append(f.calls, swapCall{a: a, b: b})
	return f.err
}

type fakeDialog struct {
	answer   bool
	confirms []string
	alerts   []string
}

func (f *fakeDialog) Confirm(_ context.Context, message string) bool {
	f.confirms = append(f.confirms, message)
	return f.answer
}

func (f *fakeDialog) Alert(_ context.Context, message string) {
	f.alerts = append(f.alerts, message)
}

type fixture struct {
	container *fakeContainer
	orders    *fakeOrders
	dialog    *fakeDialog
	manager   *Manager
}

func newFixture(items ...model.Item) *fixture {
	f := &fixture{
		container: &fakeContainer{},
		orders:    &fakeOrders{},
		dialog:    &fakeDialog{answer: true},
	}
	f.manager = NewManager(f.container, f.orders, f.dialog, NewCollator("de"), zap.NewNop())
	f.manager.SetRegions([]model.Region{{ID: "north", Name: "Nord"}, {ID: "south", Name: "Süd"}})
	f.manager.SetItems(items)
	return f
}

func sampleItems() []model.Item {
	return []model.Item{
		{ID: "a", Name: "Alpha", Regions: []string{"north"}, Order: 1, Schutzart: "IP Hoch", BWS: "BWS Ja", Price: decimal.NewFromInt(10)},
		{ID: "b", Name: "Bravo", Regions: []string{"north"}, Order: 2, Schutzart: "IP Niedrig", Serie: "Spot", Price: decimal.NewFromInt(20)},
		{ID: "c", Name: "Charlie", Regions: []string{"north"}, Order: 3},
		{ID: "s", Name: "Sierra", Regions: []string{"south"}, Order: 4},
	}
}

func TestManager_Submit_WithoutRegion(t *testing.T) {
	f := newFixture(sampleItems()...)
	require.NoError(t, f.manager.SetField("name", "Neu"))

	saved, err := f.manager.Submit(context.Background())

	assert.ErrorIs(t, err, ErrNoRegion)
	assert.Nil(t, saved)
	assert.Empty(t, f.container.added)
	assert.Empty(t, f.container.updated)
	assert.Equal(t, []string{MsgSelectRegionFirst}, f.dialog.alerts)
	assert.Equal(t, "Neu", f.manager.Form().Name, "form must be left untouched")
}

func TestManager_Submit_Creates(t *testing.T) {
	f := newFixture(sampleItems()...)
	f.manager.SelectRegion("north")
	require.NoError(t, f.manager.SetField("name", "Kombi 3"))
	require.NoError(t, f.manager.SetField("price", "49.90"))
	require.NoError(t, f.manager.SetField("material", "Alu"))

	saved, err := f.manager.Submit(context.Background())

	require.NoError(t, err)
	require.Len(t, f.container.added, 1)
	assert.Empty(t, f.container.updated)

	added := f.container.added[0]
	assert.Equal(t, []string{"north"}, added.Regions)
	assert.Equal(t, "Kombi 3", added.Name)
	assert.Equal(t, "Alu", added.Material)
	assert.True(t, added.Price.Equal(decimal.RequireFromString("49.9")))
	assert.Equal(t, len(sampleItems())+1, added.Order)
	assert.Equal(t, added.ID, saved.ID)

	assert.Equal(t, model.Form{}, f.manager.Form())
	assert.Equal(t, LabelAdd, f.manager.SubmitLabel())
}

func TestManager_Submit_UpdatesEditedItem(t *testing.T) {
	f := newFixture(sampleItems()...)
	f.manager.SelectRegion("north")
	require.NoError(t, f.manager.Edit("b"))
	assert.Equal(t, LabelUpdate, f.manager.SubmitLabel())
	require.NoError(t, f.manager.SetField("name", "Bravo 2"))

	_, err := f.manager.Submit(context.Background())

	require.NoError(t, err)
	assert.Empty(t, f.container.added)
	require.Len(t, f.container.updated, 1)
	updated := f.container.updated[0]
	assert.Equal(t, "b", updated.ID)
	assert.Equal(t, "Bravo 2", updated.Name)
	assert.Equal(t, "Spot", updated.Serie)
	assert.Equal(t, []string{"north"}, updated.Regions)
	assert.Equal(t, len(sampleItems())+1, updated.Order)
	assert.Empty(t, f.manager.EditingItemID())
	assert.Equal(t, LabelAdd, f.manager.SubmitLabel())
}

func TestManager_Submit_ContainerErrorKeepsForm(t *testing.T) {
	f := newFixture(sampleItems()...)
	f.container.addErr = errors.New("store down")
	f.manager.SelectRegion("north")
	require.NoError(t, f.manager.SetField("name", "Neu"))

	_, err := f.manager.Submit(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
	assert.Equal(t, "Neu", f.manager.Form().Name)
}

func TestManager_Edit(t *testing.T) {
	f := newFixture(sampleItems()...)

	require.NoError(t, f.manager.Edit("a"))

	form := f.manager.Form()
	assert.Equal(t, "Alpha", form.Name)
	assert.Equal(t, "IP Hoch", form.Schutzart)
	assert.Equal(t, "BWS Ja", form.BWS)
	assert.Equal(t, "a", f.manager.EditingItemID())

	view := f.manager.View()
	assert.True(t, view.ScrollToForm)
	assert.False(t, f.manager.View().ScrollToForm, "scroll request is reported once")

	assert.ErrorIs(t, f.manager.Edit("zzz"), ErrUnknownItem)
}

func TestManager_SetField(t *testing.T) {
	f := newFixture()

	for _, field := range []string{"name", "schutzart", "bws", "typ", "art", "serie", "material"} {
		require.NoError(t, f.manager.SetField(field, "x"), field)
	}
	require.NoError(t, f.manager.SetField("price", ""))
	assert.True(t, f.manager.Form().Price.IsZero())

	assert.ErrorIs(t, f.manager.SetField("price", "zwölf"), ErrInvalidPrice)
	assert.ErrorIs(t, f.manager.SetField("color", "red"), ErrUnknownField)
}

func TestManager_Delete(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(sampleItems()...)

		ok, err := f.manager.Delete(context.Background(), "a")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"a"}, f.container.deleted)
		assert.Equal(t, []string{MsgConfirmDelete}, f.dialog.confirms)
	})

	t.Run("declined", func(t *testing.T) {
		f := newFixture(sampleItems()...)
		f.dialog.answer = false

		ok, err := f.manager.Delete(context.Background(), "a")

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, f.container.deleted)
	})

	t.Run("container error propagates", func(t *testing.T) {
		f := newFixture(sampleItems()...)
		f.container.deleteErr = map[string]error{"a": errors.New("gone")}

		_, err := f.manager.Delete(context.Background(), "a")

		assert.Error(t, err)
	})
}

func TestManager_DeleteAll(t *testing.T) {
	t.Run("deletes only items of the selected region", func(t *testing.T) {
		f := newFixture(sampleItems()...)
		f.manager.SelectRegion("north")
		f.manager.SetSearch("alpha")

		n, err := f.manager.DeleteAll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, f.container.deleted)
		assert.NotContains(t, f.container.deleted, "s")
		assert.Equal(t, []string{"Möchten Sie wirklich alle Artikel für das Gebiet Nord löschen?"}, f.dialog.confirms)
	})

	t.Run("partial failure is not reported", func(t *testing.T) {
		f := newFixture(sampleItems()...)
		f.container.deleteErr = map[string]error{"b": errors.New("boom")}
		f.manager.SelectRegion("north")

		n, err := f.manager.DeleteAll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"a", "c"}, f.container.deleted)
	})

	t.Run("declined", func(t *testing.T) {
		f := newFixture(sampleItems()...)
		f.dialog.answer = false
		f.manager.SelectRegion("north")

		n, err := f.manager.DeleteAll(context.Background())

		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, f.container.deleted)
	})

	t.Run("no region", func(t *testing.T) {
		f := newFixture(sampleItems()...)

		_, err := f.manager.DeleteAll(context.Background())

		assert.ErrorIs(t, err, ErrNoRegion)
		assert.Empty(t, f.dialog.confirms)
	})
}

func TestManager_CopyToRegion(t *testing.T) {
	t.Run("without destination", func(t *testing.T) {
		f := newFixture(sampleItems()...)
		f.manager.SelectRegion("north")

		_, err := f.manager.CopyToRegion(context.Background())

		assert.ErrorIs(t, err, ErrNoDestination)
		assert.Equal(t, []string{MsgSelectDestination}, f.dialog.alerts)
		assert.Empty(t, f.container.added)
	})

	t.Run("takes bws to material from the form", func(t *testing.T) {
		f := newFixture(sampleItems()...)
		f.manager.SelectRegion("north")
		f.manager.SetCopyTarget("south")
		require.NoError(t, f.manager.SetField("bws", "BWS Nein"))
		require.NoError(t, f.manager.SetField("typ", "RZ"))
		require.NoError(t, f.manager.SetField("serie", "Trapez"))
		require.NoError(t, f.manager.SetField("name", "ignored"))

		copies, err := f.manager.CopyToRegion(context.Background())

		require.NoError(t, err)
		require.Len(t, copies, 3)
		assert.Equal(t, []string{"Möchten Sie wirklich alle Artikel von Nord nach Süd kopieren?"}, f.dialog.confirms)

		first := f.container.added[0]
		assert.Equal(t, "Alpha", first.Name)
		assert.True(t, first.Price.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, "IP Hoch", first.Schutzart)
		assert.Equal(t, "BWS Nein", first.BWS)
		assert.Equal(t, "RZ", first.Typ)
		assert.Equal(t, "Trapez", first.Serie)

		second := f.container.added[1]
		assert.Equal(t, "Bravo", second.Name)
		assert.Equal(t, "Trapez", second.Serie, "serie is not taken from the source item")

		for _, c := range f.container.added {
			assert.Equal(t, []string{"south"}, c.Regions)
			assert.Equal(t, len(sampleItems())+1, c.Order)
		}
		assert.Empty(t, f.manager.View().CopyToRegion)
	})

	t.Run("same region duplicates every item", func(t *testing.T) {
		f := newFixture(sampleItems()...)
		f.manager.SelectRegion("north")
		f.manager.SetCopyTarget("north")

		copies, err := f.manager.CopyToRegion(context.Background())

		require.NoError(t, err)
		require.Len(t, copies, 3)
		for _, c := range f.container.added {
			assert.Equal(t, []string{"north"}, c.Regions)
		}
	})

	t.Run("declined keeps target", func(t *testing.T) {
		f := newFixture(sampleItems()...)
		f.dialog.answer = false
		f.manager.SelectRegion("north")
		f.manager.SetCopyTarget("south")

		copies, err := f.manager.CopyToRegion(context.Background())

		require.NoError(t, err)
		assert.Nil(t, copies)
		assert.Empty(t, f.container.added)
		assert.Equal(t, "south", f.manager.View().CopyToRegion)
	})
}

func TestManager_MoveBoundaries(t *testing.T) {
	f := newFixture(sampleItems()...)
	f.manager.SelectRegion("north")
	visible := f.manager.Visible()
	require.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, names(visible))

	require.NoError(t, f.manager.MoveUp(context.Background(), "a"))
	require.NoError(t, f.manager.MoveDown(context.Background(), "c"))

	assert.Empty(t, f.orders.calls)
	assert.Equal(t, []int{1, 2, 3, 4}, orders(f.manager.Items()))
}

func TestManager_MoveUpSwapsWithPredecessor(t *testing.T) {
	f := newFixture(sampleItems()...)
	f.manager.SelectRegion("north")

	require.NoError(t, f.manager.MoveUp(context.Background(), "b"))

	require.Len(t, f.orders.calls, 1)
	assert.Equal(t, "b", f.orders.calls[0].a.ID)
	assert.Equal(t, "a", f.orders.calls[0].b.ID)
	assert.Equal(t, []int{2, 1, 3, 4}, orders(f.manager.Items()))
}

func TestManager_MoveDownSwapsWithSuccessor(t *testing.T) {
	f := newFixture(sampleItems()...)
	f.manager.SelectRegion("north")

	require.NoError(t, f.manager.MoveDown(context.Background(), "b"))

	require.Len(t, f.orders.calls, 1)
	assert.Equal(t, "c", f.orders.calls[0].b.ID)
	assert.Equal(t, []int{1, 3, 2, 4}, orders(f.manager.Items()))
}

func TestManager_SwapFailureKeepsLocalOrder(t *testing.T) {
	f := newFixture(sampleItems()...)
	f.orders.err = errors.New("write rejected")
	f.manager.SelectRegion("north")

	err := f.manager.MoveDown(context.Background(), "a")

	require.Error(t, err)
	assert.Equal(t, []string{MsgOrderUpdateFailed}, f.dialog.alerts)
	assert.Equal(t, []int{2, 1, 3, 4}, orders(f.manager.Items()))
}

func TestManager_MoveUnknownItem(t *testing.T) {
	f := newFixture(sampleItems()...)
	f.manager.SelectRegion("north")

	assert.ErrorIs(t, f.manager.MoveUp(context.Background(), "s"), ErrUnknownItem)
	assert.ErrorIs(t, f.manager.MoveDown(context.Background(), "zzz"), ErrUnknownItem)
	assert.Empty(t, f.orders.calls)
}

func TestManager_SetItemsCopiesInput(t *testing.T) {
	items := sampleItems()
	f := newFixture(items...)
	f.manager.SelectRegion("north")

	require.NoError(t, f.manager.MoveDown(context.Background(), "a"))

	assert.Equal(t, 1, items[0].Order)
}

func TestManager_View(t *testing.T) {
	f := newFixture(sampleItems()...)
	f.manager.SelectRegion("south")
	f.manager.SetSearch("sie")

	view := f.manager.View()

	assert.Equal(t, "south", view.SelectedRegion)
	assert.Equal(t, "sie", view.Search)
	assert.Equal(t, LabelAdd, view.SubmitLabel)
	assert.Len(t, view.Regions, 2)
	assert.Equal(t, []string{"Sierra"}, names(view.Items))
}

func orders(items []model.Item) []int {
	out := make([]int, 0, len(items))
	for _, i := range items {
		out = append(out, i.Order)
	}
	return out
}
