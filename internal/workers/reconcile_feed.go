package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// FeedReconciler re-derives cached feed pages and evicts the ones that drifted.
type FeedReconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

type reconcileFeedWorker struct {
	feed     FeedReconciler
	interval time.Duration
}

func NewReconcileFeedWorker(f FeedReconciler, interval time.Duration) *reconcileFeedWorker {
	return &reconcileFeedWorker{
		feed:     f,
		interval: interval,
	}
}

// Start runs a reconciliation every interval until ctx is done.
func (w *reconcileFeedWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		logrus.Info("feed reconciliation disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-ctx.Done():
			logrus.Info("shutting down ReconcileFeedWorker")
			return
		}
	}
}

func (w *reconcileFeedWorker) runOnce(ctx context.Context) {
	start := time.Now()
	evicted, err := w.feed.Reconcile(ctx)
	if err != nil {
		logrus.Errorf("feed reconciliation failed after %d evictions: %v", evicted, err)
		return
	}
	if evicted > 0 {
		logrus.WithFields(logrus.Fields{
			"evicted": evicted,
			"took":    time.Since(start),
		}).Info("feed reconciliation evicted drifted pages")
	}
}
