package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

type eventKind int8

const (
	eventLikeChanged eventKind = iota
	eventImageCreated
)

type EventTask struct {
	kind   eventKind
	Like   domain.Like
	Total  domain.LikeTotal
	Action domain.LikeAction
	Image  domain.Image
}

// publishEventsWorker takes events off the request path: the Publish methods
// only enqueue, and Start hands batches to the downstream publisher.
type publishEventsWorker struct {
	publisher domain.EventPublisher
	ch        chan EventTask
	interval  time.Duration
}

var _ domain.EventPublisher = (*publishEventsWorker)(nil)

func NewPublishEventsWorker(p domain.EventPublisher, queueSize int) *publishEventsWorker {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &publishEventsWorker{
		publisher: p,
		ch:        make(chan EventTask, queueSize),
		interval:  time.Second,
	}
}

func (w *publishEventsWorker) PublishLikeChanged(ctx context.Context, like domain.Like, total domain.LikeTotal, action domain.LikeAction) error {
	w.send(EventTask{kind: eventLikeChanged, Like: like, Total: total, Action: action})
	return nil
}

func (w *publishEventsWorker) PublishImageCreated(ctx context.Context, img domain.Image) error {
	w.send(EventTask{kind: eventImageCreated, Image: img})
	return nil
}

func (w *publishEventsWorker) send(task EventTask) {
	select {
	case w.ch <- task:
	default:
		logrus.Info("PublishEventsWorker's channel is full, task dropped")
	}
}

// Start blocks until ctx is done, then publishes what is still queued.
func (w *publishEventsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	const batchSize = 100
	batch := make([]EventTask, 0, batchSize)
	for {
		select {
		case task := <-w.ch:
			batch = append(batch, task)
			if len(batch) == batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			w.flush(ctx, batch)
			batch = batch[:0]
		case <-ctx.Done():
			logrus.Info("shutting down PublishEventsWorker, flushing remain tasks...")
			for {
				select {
				case task := <-w.ch:
					batch = append(batch, task)
				default:
					w.flush(context.WithoutCancel(ctx), batch)
					return
				}
			}
		}
	}
}

func (w *publishEventsWorker) flush(ctx context.Context, batch []EventTask) {
	for i := range batch {
		var err error
		switch batch[i].kind {
		case eventLikeChanged:
			err = w.publisher.PublishLikeChanged(ctx, batch[i].Like, batch[i].Total, batch[i].Action)
		case eventImageCreated:
			err = w.publisher.PublishImageCreated(ctx, batch[i].Image)
		default:
			logrus.Errorf("Unsupported event kind: %v", batch[i].kind)
			continue
		}
		if err != nil {
			logrus.Warnf("failed to publish event: %v", err)
		}
	}
}
