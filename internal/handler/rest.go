package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/region-catalog/internal/catalog"
	"github.com/vyrodovalexey/region-catalog/internal/model"
	"github.com/vyrodovalexey/region-catalog/internal/store"
)

// RESTHandler handles REST API requests for items and regions.
//
// Region endpoints are stateless: every request loads a fresh catalog.Manager
// from the service, and sending the request counts as the user's confirmation.
type RESTHandler struct {
	service CatalogService
	locale  string
	logger  *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(service CatalogService, locale string, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		service: service,
		locale:  locale,
		logger:  logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/options", h.GetOptions).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/regions", h.ListRegions).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{id}", h.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/items/{id}", h.DeleteItem).Methods(http.MethodDelete)

	router.HandleFunc("/api/v1/regions/{regionID}/items", h.ListRegionItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/regions/{regionID}/items", h.DeleteRegionItems).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/regions/{regionID}/form", h.SubmitForm).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/regions/{regionID}/copy", h.CopyRegion).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/regions/{regionID}/items/{id}/move", h.MoveItem).Methods(http.MethodPost)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// GetOptions handles GET /api/v1/options requests.
func (h *RESTHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.service.Regions(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list regions")
		return
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.NewOptions(regions)))
}

// ListRegions handles GET /api/v1/regions requests.
func (h *RESTHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.service.Regions(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list regions")
		return
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(regions))
}

// ListItems handles GET /api/v1/items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Items(r.Context())
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(items))
}

// GetItem handles GET /api/v1/items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	item, err := h.service.Item(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// CreateItem handles POST /api/v1/items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var input model.Item
	if !h.decodeItem(w, r, &input) {
		return
	}

	item, err := h.service.AddItem(r.Context(), input)
	if err != nil {
		h.handleStoreError(w, err, "create item")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// UpdateItem handles PUT /api/v1/items/{id} requests.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var input model.Item
	if !h.decodeItem(w, r, &input) {
		return
	}
	input.ID = mux.Vars(r)["id"]

	item, err := h.service.UpdateItem(r.Context(), input)
	if err != nil {
		h.handleStoreError(w, err, "update item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// DeleteItem handles DELETE /api/v1/items/{id} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		h.handleStoreError(w, err, "delete item")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// ListRegionItems handles GET /api/v1/regions/{regionID}/items requests.
// The result is filtered by the optional search query and sorted for display.
func (h *RESTHandler) ListRegionItems(w http.ResponseWriter, r *http.Request) {
	m, _, ok := h.regionManager(w, r)
	if !ok {
		return
	}
	m.SetSearch(r.URL.Query().Get("search"))

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(m.Visible()))
}

// SubmitForm handles POST /api/v1/regions/{regionID}/form requests. Without
// editingItemId a new item is added to the region, otherwise the item is
// updated.
func (h *RESTHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var req FormRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validateForm(w, req.Fields) {
		return
	}

	m, dialog, ok := h.regionManager(w, r)
	if !ok {
		return
	}
	m.SetForm(req.Fields)
	m.SetEditing(req.EditingItemID)

	item, err := m.Submit(r.Context())
	if err != nil {
		h.handleCatalogError(w, dialog, err, "submit form")
		return
	}

	status := http.StatusCreated
	if req.EditingItemID != "" {
		status = http.StatusOK
	}
	h.writeJSON(w, status, model.NewSuccessResponse(item))
}

// DeleteRegionItems handles DELETE /api/v1/regions/{regionID}/items requests.
func (h *RESTHandler) DeleteRegionItems(w http.ResponseWriter, r *http.Request) {
	m, dialog, ok := h.regionManager(w, r)
	if !ok {
		return
	}

	deleted, err := m.DeleteAll(r.Context())
	if err != nil {
		h.handleCatalogError(w, dialog, err, "delete region items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(DeleteAllResponse{Deleted: deleted}))
}

// CopyRegion handles POST /api/v1/regions/{regionID}/copy requests.
func (h *RESTHandler) CopyRegion(w http.ResponseWriter, r *http.Request) {
	var req CopyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validateForm(w, req.Fields) {
		return
	}

	m, dialog, ok := h.regionManager(w, r)
	if !ok {
		return
	}
	if req.Destination != "" {
		if _, err := h.service.Region(r.Context(), req.Destination); err != nil {
			h.handleStoreError(w, err, "get destination region")
			return
		}
	}
	m.SetForm(req.Fields)
	m.SetCopyTarget(req.Destination)

	copies, err := m.CopyToRegion(r.Context())
	if err != nil {
		h.handleCatalogError(w, dialog, err, "copy region")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(copies))
}

// MoveItem handles POST /api/v1/regions/{regionID}/items/{id}/move requests.
// The neighbour is determined by the region list filtered with the given
// search text. The response carries the reordered list.
func (h *RESTHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Direction != DirectionUp && req.Direction != DirectionDown {
		h.writeError(w, http.StatusBadRequest, "direction must be up or down")
		return
	}

	m, dialog, ok := h.regionManager(w, r)
	if !ok {
		return
	}
	m.SetSearch(req.Search)

	id := mux.Vars(r)["id"]
	var err error
	if req.Direction == DirectionUp {
		err = m.MoveUp(r.Context(), id)
	} else {
		err = m.MoveDown(r.Context(), id)
	}
	if err != nil {
		h.handleCatalogError(w, dialog, err, "move item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(m.Visible()))
}

// regionManager loads a Manager with the path region selected.
func (h *RESTHandler) regionManager(
	w http.ResponseWriter,
	r *http.Request,
) (*catalog.Manager, *catalog.RequestDialog, bool) {
	ctx := r.Context()
	regionID := mux.Vars(r)["regionID"]

	if _, err := h.service.Region(ctx, regionID); err != nil {
		h.handleStoreError(w, err, "get region")
		return nil, nil, false
	}

	dialog := &catalog.RequestDialog{}
	m, err := h.service.NewManager(ctx, dialog, h.locale)
	if err != nil {
		h.handleStoreError(w, err, "load catalog")
		return nil, nil, false
	}
	m.SelectRegion(regionID)

	return m, dialog, true
}

func (h *RESTHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *RESTHandler) decodeItem(w http.ResponseWriter, r *http.Request, item *model.Item) bool {
	if !h.decode(w, r, item) {
		return false
	}
	if err := item.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *RESTHandler) validateForm(w http.ResponseWriter, form model.Form) bool {
	item := model.Item{
		Name:      form.Name,
		Price:     form.Price,
		Schutzart: form.Schutzart,
		BWS:       form.BWS,
		Typ:       form.Typ,
		Art:       form.Art,
		Serie:     form.Serie,
		Material:  form.Material,
	}
	if err := item.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleCatalogError maps controller errors to HTTP responses. Alerts raised
// by the controller become the response message.
func (h *RESTHandler) handleCatalogError(
	w http.ResponseWriter,
	dialog *catalog.RequestDialog,
	err error,
	operation string,
) {
	switch {
	case errors.Is(err, catalog.ErrNoRegion), errors.Is(err, catalog.ErrNoDestination):
		message := dialog.LastAlert
		if message == "" {
			message = err.Error()
		}
		h.writeError(w, http.StatusBadRequest, message)
	case errors.Is(err, catalog.ErrUnknownItem):
		h.writeError(w, http.StatusNotFound, "item not found in region")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidID):
		h.handleStoreError(w, err, operation)
	case dialog.LastAlert != "":
		h.logger.Error("catalog operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, dialog.LastAlert)
	default:
		h.handleStoreError(w, err, operation)
	}
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrRegionNotFound):
		h.writeError(w, http.StatusNotFound, "region not found")
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
	case errors.Is(err, store.ErrNilItem):
		h.writeError(w, http.StatusBadRequest, "item cannot be empty")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}
