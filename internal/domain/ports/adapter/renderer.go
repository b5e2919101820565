package adapter

import (
	"context"

	"telegram-legal-assistant/internal/domain/model"
)

// DocumentRenderer turns a structured document description into a styled file.
// Layout fidelity is the renderer's concern, not the use case's.
type DocumentRenderer interface {
	// Render returns the file bytes and a suggested filename.
	Render(ctx context.Context, doc *model.Document) ([]byte, string, error)
}
