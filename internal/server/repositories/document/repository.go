package document

import (
	"context"

	"github.com/sharepad/sharepad/internal/server/models"
)

// Repository persists the single shared document: its content blob, the
// monotonically increasing version counter and the append-only history
// log. Implementations must make Write atomic (content replace, version
// increment and history append observed together or not at all).
type Repository interface {
	Read(ctx context.Context) (models.DocumentState, error)
	Write(ctx context.Context, content []byte, clientID string) (int64, error)
	HistorySince(ctx context.Context, after int64) ([]models.HistoryEntry, error)
}
