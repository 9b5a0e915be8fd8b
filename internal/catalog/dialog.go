package catalog

import (
	"context"
	"fmt"
)

// User-facing messages.
const (
	MsgSelectRegionFirst = "Bitte wähle zuerst ein Gebiet aus."
	MsgSelectDestination = "Bitte wählen Sie ein Zielgebiet aus."
	MsgConfirmDelete     = "Möchten Sie diesen Artikel wirklich löschen?"
	MsgOrderUpdateFailed = "Fehler beim Aktualisieren der Reihenfolge"

	LabelAdd    = "Artikel hinzufügen"
	LabelUpdate = "Update Artikel"
)

func confirmDeleteAllMessage(regionName string) string {
	return fmt.Sprintf("Möchten Sie wirklich alle Artikel für das Gebiet %s löschen?", regionName)
}

func confirmCopyMessage(from, to string) string {
	return fmt.Sprintf("Möchten Sie wirklich alle Artikel von %s nach %s kopieren?", from, to)
}

// Dialog presents blocking confirmations and alerts to the user.
type Dialog interface {
	// Confirm asks a yes/no question and reports the answer.
	Confirm(ctx context.Context, message string) bool

	// Alert shows a message that needs no answer.
	Alert(ctx context.Context, message string)
}

// RequestDialog is a Dialog for request/response callers: every confirmation
// is answered yes and the last alert is kept for the response.
type RequestDialog struct {
	LastAlert string
}

// Confirm always returns true; issuing the request is the confirmation.
func (d *RequestDialog) Confirm(context.Context, string) bool {
	return true
}

// Alert records the message.
func (d *RequestDialog) Alert(_ context.Context, message string) {
	d.LastAlert = message
}
