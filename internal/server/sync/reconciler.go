// Package sync bridges the document store's pull model to many
// independently-polling clients. The reconciler is stateless: every
// cursor lives client-side as a version watermark, which is what keeps
// the read path horizontally scalable.
package sync

import (
	"context"

	"github.com/sharepad/sharepad/internal/server/document"
	"github.com/sharepad/sharepad/internal/server/models"
)

type Reconciler struct {
	docs *document.Service
}

func NewReconciler(docs *document.Service) *Reconciler {
	return &Reconciler{docs: docs}
}

// PollState returns the current document state. clientLastVersion is the
// caller's watermark; the full state is returned either way (a thin read
// passthrough), the parameter exists so callers can decide locally
// whether anything changed.
func (r *Reconciler) PollState(ctx context.Context, clientLastVersion int64) (models.DocumentState, error) {
	return r.docs.Read(ctx)
}

// PollHistory returns history entries with version > afterVersion in
// strictly increasing order with no gaps. A client that advances its
// watermark to the maximum version seen will never re-receive or skip an
// entry.
func (r *Reconciler) PollHistory(ctx context.Context, afterVersion int64) ([]models.HistoryEntry, error) {
	return r.docs.HistorySince(ctx, afterVersion)
}
