package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/collate"

	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// Controller errors.
var (
	ErrNoRegion      = errors.New("no region selected")
	ErrNoDestination = errors.New("no destination region selected")
	ErrUnknownItem   = errors.New("item is not in the current list")
	ErrUnknownField  = errors.New("unknown form field")
	ErrInvalidPrice  = errors.New("invalid price")
)

// Container persists item mutations and makes them visible to every view of
// the item collection.
type Container interface {
	AddItem(ctx context.Context, item model.Item) (*model.Item, error)
	UpdateItem(ctx context.Context, item model.Item) (*model.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// OrderStore persists an order swap between two items atomically.
type OrderStore interface {
	SwapOrder(ctx context.Context, a, b model.Item) error
}

// Manager holds the state of one catalog view: the item snapshot, the
// selected region, the search text, the form and the copy target.
//
// A Manager is not safe for concurrent use. Callers serialize access.
type Manager struct {
	container Container
	orders    OrderStore
	dialog    Dialog
	logger    *zap.Logger
	collator  *collate.Collator

	items   []model.Item
	regions []model.Region
	visible []model.Item

	selectedRegion string
	search         string
	copyToRegion   string

	form          model.Form
	editingItemID string
	scrollToForm  bool
}

// NewManager creates a Manager with an empty item snapshot.
func NewManager(
	container Container,
	orders OrderStore,
	dialog Dialog,
	collator *collate.Collator,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		container: container,
		orders:    orders,
		dialog:    dialog,
		collator:  collator,
		logger:    logger,
		visible:   []model.Item{},
	}
}

// SetItems replaces the item snapshot.
func (m *Manager) SetItems(items []model.Item) {
	m.items = slices.Clone(items)
	m.refresh()
}

// SetRegions replaces the known regions.
func (m *Manager) SetRegions(regions []model.Region) {
	m.regions = regions
}

// SelectRegion makes regionID the active region.
func (m *Manager) SelectRegion(regionID string) {
	m.selectedRegion = regionID
	m.refresh()
}

// SetSearch sets the name filter.
func (m *Manager) SetSearch(search string) {
	m.search = search
	m.refresh()
}

// SetCopyTarget sets the destination region for CopyToRegion.
func (m *Manager) SetCopyTarget(regionID string) {
	m.copyToRegion = regionID
}

// SetForm replaces all form fields.
func (m *Manager) SetForm(form model.Form) {
	m.form = form
}

// SetEditing puts the form into editing mode for id without touching the
// fields. An empty id returns to creating mode.
func (m *Manager) SetEditing(id string) {
	m.editingItemID = id
}

// SetField sets a single form field by its JSON name.
func (m *Manager) SetField(field, value string) error {
	switch field {
	case "name":
		m.form.Name = value
	case "price":
		if value == "" {
			m.form.Price = decimal.Zero
			return nil
		}
		price, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPrice, value)
		}
		m.form.Price = price
	case "schutzart":
		m.form.Schutzart = value
	case "bws":
		m.form.BWS = value
	case "typ":
		m.form.Typ = value
	case "art":
		m.form.Art = value
	case "serie":
		m.form.Serie = value
	case "material":
		m.form.Material = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// Items returns the current item snapshot.
func (m *Manager) Items() []model.Item {
	return m.items
}

// Visible returns the filtered and sorted items of the selected region.
func (m *Manager) Visible() []model.Item {
	return m.visible
}

// Form returns the current form fields.
func (m *Manager) Form() model.Form {
	return m.form
}

// EditingItemID returns the id of the item being edited, or "" while creating.
func (m *Manager) EditingItemID() string {
	return m.editingItemID
}

// SubmitLabel returns the caption of the submit button.
func (m *Manager) SubmitLabel() string {
	if m.editingItemID != "" {
		return LabelUpdate
	}
	return LabelAdd
}

// View renders the state. A pending scroll request is reported once.
func (m *Manager) View() model.SessionView {
	view := model.SessionView{
		Regions:        m.regions,
		SelectedRegion: m.selectedRegion,
		CopyToRegion:   m.copyToRegion,
		Search:         m.search,
		Form:           m.form,
		EditingItemID:  m.editingItemID,
		SubmitLabel:    m.SubmitLabel(),
		ScrollToForm:   m.scrollToForm,
		Items:          m.visible,
	}
	if view.Regions == nil {
		view.Regions = []model.Region{}
	}
	m.scrollToForm = false
	return view
}

// Submit adds a new item or updates the edited one from the form fields.
// Without a selected region the user is alerted and nothing is stored.
func (m *Manager) Submit(ctx context.Context) (*model.Item, error) {
	if m.selectedRegion == "" {
		m.dialog.Alert(ctx, MsgSelectRegionFirst)
		return nil, ErrNoRegion
	}

	candidate := m.itemFromForm(m.form, m.selectedRegion, len(m.items)+1)

	var (
		saved *model.Item
		err   error
	)
	if m.editingItemID != "" {
		candidate.ID = m.editingItemID
		saved, err = m.container.UpdateItem(ctx, candidate)
		observe(opUpdate, err)
		if err != nil {
			return nil, fmt.Errorf("update item %s: %w", candidate.ID, err)
		}
	} else {
		saved, err = m.container.AddItem(ctx, candidate)
		observe(opAdd, err)
		if err != nil {
			return nil, fmt.Errorf("add item: %w", err)
		}
	}

	m.resetForm()
	return saved, nil
}

// Edit loads the item with the given id from the snapshot into the form.
func (m *Manager) Edit(id string) error {
	idx := slices.IndexFunc(m.items, func(i model.Item) bool { return i.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}

	m.editingItemID = id
	m.form = model.FormFromItem(m.items[idx])
	m.scrollToForm = true
	return nil
}

// Delete removes one item after the user confirms. It reports whether the
// deletion was issued.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	if !m.dialog.Confirm(ctx, MsgConfirmDelete) {
		return false, nil
	}

	err := m.container.DeleteItem(ctx, id)
	observe(opDelete, err)
	if err != nil {
		return false, fmt.Errorf("delete item %s: %w", id, err)
	}
	return true, nil
}

// DeleteAll removes every item of the selected region after one confirmation,
// ignoring the search filter. Each deletion is independent: failures are
// logged and skipped. It returns the number of deleted items.
func (m *Manager) DeleteAll(ctx context.Context) (int, error) {
	if m.selectedRegion == "" {
		return 0, ErrNoRegion
	}

	name := model.RegionName(m.regions, m.selectedRegion)
	if !m.dialog.Confirm(ctx, confirmDeleteAllMessage(name)) {
		return 0, nil
	}

	deleted := 0
	for _, item := range m.regionItems(m.selectedRegion) {
		err := m.container.DeleteItem(ctx, item.ID)
		observe(opDeleteAll, err)
		if err != nil {
			m.logger.Warn("bulk delete: item not deleted",
				zap.String("region", m.selectedRegion),
				zap.String("item_id", item.ID),
				zap.Error(err),
			)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// CopyToRegion adds a copy of every item of the selected region to the copy
// target region after the user confirms. Name, price and schutzart come from
// the source item; bws, typ, art, serie and material come from the current
// form fields. All copies share the order value len(items)+1. Failed adds are
// logged and skipped.
func (m *Manager) CopyToRegion(ctx context.Context) ([]model.Item, error) {
	if m.copyToRegion == "" {
		m.dialog.Alert(ctx, MsgSelectDestination)
		return nil, ErrNoDestination
	}

	from := model.RegionName(m.regions, m.selectedRegion)
	to := model.RegionName(m.regions, m.copyToRegion)
	if !m.dialog.Confirm(ctx, confirmCopyMessage(from, to)) {
		return nil, nil
	}

	order := len(m.items) + 1
	copies := make([]model.Item, 0)
	for _, src := range m.regionItems(m.selectedRegion) {
		form := m.form
		form.Name = src.Name
		form.Price = src.Price
		form.Schutzart = src.Schutzart

		created, err := m.container.AddItem(ctx, m.itemFromForm(form, m.copyToRegion, order))
		observe(opCopy, err)
		if err != nil {
			m.logger.Warn("copy: item not copied",
				zap.String("from", m.selectedRegion),
				zap.String("to", m.copyToRegion),
				zap.String("item_id", src.ID),
				zap.Error(err),
			)
			continue
		}
		copies = append(copies, *created)
	}

	m.copyToRegion = ""
	return copies, nil
}

// MoveUp swaps the order of the item with its predecessor in the visible list.
// The first item is left alone.
func (m *Manager) MoveUp(ctx context.Context, id string) error {
	idx, err := m.visibleIndex(id)
	if err != nil {
		return err
	}
	if idx == 0 {
		return nil
	}
	return m.swapOrder(ctx, m.visible[idx], m.visible[idx-1])
}

// MoveDown swaps the order of the item with its successor in the visible list.
// The last item is left alone.
func (m *Manager) MoveDown(ctx context.Context, id string) error {
	idx, err := m.visibleIndex(id)
	if err != nil {
		return err
	}
	if idx == len(m.visible)-1 {
		return nil
	}
	return m.swapOrder(ctx, m.visible[idx], m.visible[idx+1])
}

// swapOrder exchanges the order values of a and b in the local snapshot first
// and then persists both in one store call. A failed write is logged and
// alerted; the local change is kept.
func (m *Manager) swapOrder(ctx context.Context, a, b model.Item) error {
	m.setLocalOrder(a.ID, b.Order)
	m.setLocalOrder(b.ID, a.Order)
	m.refresh()

	err := m.orders.SwapOrder(ctx, a, b)
	observe(opSwapOrder, err)
	if err != nil {
		m.logger.Error("error updating item order",
			zap.String("item_id", a.ID),
			zap.String("other_item_id", b.ID),
			zap.Error(err),
		)
		m.dialog.Alert(ctx, MsgOrderUpdateFailed)
		return fmt.Errorf("swap order %s/%s: %w", a.ID, b.ID, err)
	}
	return nil
}

func (m *Manager) setLocalOrder(id string, order int) {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Order = order
		}
	}
}

func (m *Manager) visibleIndex(id string) (int, error) {
	idx := slices.IndexFunc(m.visible, func(i model.Item) bool { return i.ID == id })
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return idx, nil
}

func (m *Manager) regionItems(regionID string) []model.Item {
	var out []model.Item
	for _, item := range m.items {
		if item.InRegion(regionID) {
			out = append(out, item)
		}
	}
	return out
}

func (m *Manager) itemFromForm(form model.Form, regionID string, order int) model.Item {
	return model.Item{
		Name:      form.Name,
		Price:     form.Price,
		Regions:   []string{regionID},
		Schutzart: form.Schutzart,
		BWS:       form.BWS,
		Typ:       form.Typ,
		Art:       form.Art,
		Serie:     form.Serie,
		Material:  form.Material,
		Order:     order,
	}
}

func (m *Manager) resetForm() {
	m.form = model.Form{}
	m.editingItemID = ""
}

func (m *Manager) refresh() {
	m.visible = Visible(m.items, m.selectedRegion, m.search, m.collator)
}
