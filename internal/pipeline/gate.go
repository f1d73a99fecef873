package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/safetyiq/recall-cli/internal/store"
)

// ShouldProcess is the deduplication gate: it consults the store before
// any fetching or entity creation happens for a source key. The unique
// constraint on source_url remains the backstop for races.
func ShouldProcess(ctx context.Context, st store.Store, sourceURL string) (bool, error) {
	exists, err := st.ExistsBySourceURL(ctx, sourceURL)
	if err != nil {
		return false, eris.Wrapf(err, "gate: check %s", sourceURL)
	}
	if exists {
		zap.L().Debug("gate: already ingested", zap.String("source_url", sourceURL))
		return false, nil
	}
	return true, nil
}
