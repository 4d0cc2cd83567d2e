// Package ledger counts reports against content and removes content whose
// count passes the threshold.
package ledger

import (
	"context"
	"errors"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage"
)

// DefaultThreshold is the highest report count an item survives.
const DefaultThreshold = 5

type Counter interface {
	IncrementReports(ctx context.Context, kind model.Kind, id int64) (int, error)
}

// Deleter removes an item together with everything that depends on it.
type Deleter interface {
	DeleteContent(ctx context.Context, kind model.Kind, id int64) error
}

type Ledger struct {
	counter   Counter
	deleter   Deleter
	threshold int
}

func New(counter Counter, deleter Deleter, threshold int) *Ledger {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Ledger{counter: counter, deleter: deleter, threshold: threshold}
}

func (l *Ledger) Threshold() int { return l.threshold }

// Report adds one report. Every call increments; deduplication is the rate
// limiter's job. storage.ErrNotFound is returned when the item does not exist.
func (l *Ledger) Report(ctx context.Context, kind model.Kind, id int64) (model.ReportOutcome, error) {
	n, err := l.counter.IncrementReports(ctx, kind, id)
	if err != nil {
		return model.ReportOutcome{}, err
	}
	if n <= l.threshold {
		return model.ReportOutcome{Count: n}, nil
	}

	// a concurrent reporter may have crossed the threshold first
	if err := l.deleter.DeleteContent(ctx, kind, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return model.ReportOutcome{}, err
	}
	return model.ReportOutcome{Deleted: true}, nil
}
