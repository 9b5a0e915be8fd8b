package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Form holds the editable item fields of an add/edit form.
type Form struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Schutzart string          `json:"schutzart"`
	BWS       string          `json:"bws"`
	Typ       string          `json:"typ"`
	Art       string          `json:"art"`
	Serie     string          `json:"serie"`
	Material  string          `json:"material"`
}

// FormFromItem copies the editable fields of an item into a form.
func FormFromItem(item Item) Form {
	return Form{
		Name:      item.Name,
		Price:     item.Price,
		Schutzart: item.Schutzart,
		BWS:       item.BWS,
		Typ:       item.Typ,
		Art:       item.Art,
		Serie:     item.Serie,
		Material:  item.Material,
	}
}

// SessionView is the rendered state of an interactive catalog session.
type SessionView struct {
	Regions        []Region `json:"regions"`
	SelectedRegion string   `json:"selected_region"`
	CopyToRegion   string   `json:"copy_to_region"`
	Search         string   `json:"search"`
	Form           Form     `json:"form"`
	EditingItemID  string   `json:"editing_item_id,omitempty"`
	SubmitLabel    string   `json:"submit_label"`
	ScrollToForm   bool     `json:"scroll_to_form,omitempty"`
	Items          []Item   `json:"items"`
}

// SessionCommand is a message sent by a client over the WebSocket connection.
type SessionCommand struct {
	Type      string `json:"type"`
	Region    string `json:"region,omitempty"`
	Search    string `json:"search,omitempty"`
	Field     string `json:"field,omitempty"`
	Value     string `json:"value,omitempty"`
	ID        string `json:"id,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

// Session command types.
const (
	CmdSelectRegion  = "select_region"
	CmdSetSearch     = "set_search"
	CmdSetField      = "set_field"
	CmdSetCopyTarget = "set_copy_target"
	CmdSubmit        = "submit"
	CmdEdit          = "edit"
	CmdDelete        = "delete"
	CmdDeleteAll     = "delete_all"
	CmdCopy          = "copy"
	CmdMoveUp        = "move_up"
	CmdMoveDown      = "move_down"
	CmdConfirmReply  = "confirm_reply"
	CmdPing          = "ping"
)

// WebSocketMessage represents a message sent over WebSocket connection.
type WebSocketMessage struct {
	Type      string       `json:"type"`
	State     *SessionView `json:"state,omitempty"`
	Message   string       `json:"message,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// WebSocket message types.
const (
	WSMessageTypeState   = "state"
	WSMessageTypeConfirm = "confirm"
	WSMessageTypeAlert   = "alert"
	WSMessageTypePong    = "pong"
	WSMessageTypeError   = "error"
)

// NewWebSocketMessage creates a timestamped WebSocket message.
func NewWebSocketMessage(msgType, message string) WebSocketMessage {
	return WebSocketMessage{
		Type:      msgType,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateMessage creates a WebSocket message carrying a session view.
func NewStateMessage(view SessionView) WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypeState,
		State:     &view,
		Timestamp: time.Now().UTC(),
	}
}

// ItemEvent announces a change of the item collection.
type ItemEvent struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id"`
	Origin string `json:"origin,omitempty"`
}

// Item event types.
const (
	ItemCreated = "item_created"
	ItemUpdated = "item_updated"
	ItemDeleted = "item_deleted"
)
