package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/finsight/internal/logger"
)

// RetentionIndex is the slice of the vector index the retention job needs.
type RetentionIndex interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// RetentionProcessor prunes index entries whose window end has fallen behind
// the retention horizon, keeping a staleness bound on retrieval results.
type RetentionProcessor struct {
	idx           RetentionIndex
	retentionDays int
	now           func() time.Time
	log           *zap.SugaredLogger
}

// NewRetentionProcessor creates a processor that keeps retentionDays of
// index history.
func NewRetentionProcessor(idx RetentionIndex, retentionDays int) *RetentionProcessor {
	return &RetentionProcessor{
		idx:           idx,
		retentionDays: retentionDays,
		now:           time.Now,
		log:           logger.Named("retention"),
	}
}

// ProcessJobs implements the JobProcessor interface
func (p *RetentionProcessor) ProcessJobs(ctx context.Context) error {
	if p.retentionDays <= 0 {
		return nil
	}

	cutoff := p.now().UTC().AddDate(0, 0, -p.retentionDays)
	removed, err := p.idx.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune index: %w", err)
	}

	if removed > 0 {
		p.log.Infow("pruned stale index entries", "removed", removed, "cutoff", cutoff)
	}
	return nil
}
