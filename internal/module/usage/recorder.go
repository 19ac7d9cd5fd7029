package usage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/echoverse/server/internal/module/quota"
)

// record is a queued audit append.
type record struct {
	UserID  string
	Feature quota.Feature
	Premium bool
}

// Appender is the subset of Repository the recorder needs.
type Appender interface {
	Append(ctx context.Context, userID string, feature quota.Feature, premium bool) (int64, error)
}

// Recorder persists audit events asynchronously through a buffered channel.
// The quota guard routes premium traffic here so a slow ledger never blocks
// premium admissions; free-tier events are appended synchronously by the
// guard and never pass through the recorder.
type Recorder struct {
	appender Appender
	logger   *zap.Logger
	buffer   chan *record
	wg       sync.WaitGroup
	done     chan struct{}
}

// NewRecorder creates and starts a new audit recorder.
func NewRecorder(appender Appender, logger *zap.Logger, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		appender: appender,
		logger:   logger,
		buffer:   make(chan *record, bufferSize),
		done:     make(chan struct{}),
	}
	r.start()
	return r
}

// Record queues a usage event for persistence. If the buffer is full the
// event is dropped with a warning; audit events never gate admission.
func (r *Recorder) Record(userID string, feature quota.Feature, premium bool) {
	select {
	case r.buffer <- &record{UserID: userID, Feature: feature, Premium: premium}:
	default:
		r.logger.Warn("audit record buffer full, dropping record",
			zap.String("user_id", userID),
			zap.String("feature", feature.String()),
		)
	}
}

// Close stops the recorder and flushes remaining records.
func (r *Recorder) Close() {
	close(r.done)
	r.wg.Wait()
}

func (r *Recorder) start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case rec := <-r.buffer:
				r.persist(rec)
			case <-r.done:
				// Flush remaining records
				for {
					select {
					case rec := <-r.buffer:
						r.persist(rec)
					default:
						return
					}
				}
			}
		}
	}()
}

func (r *Recorder) persist(rec *record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := r.appender.Append(ctx, rec.UserID, rec.Feature, rec.Premium); err != nil {
		r.logger.Error("failed to persist audit record",
			zap.Error(err),
			zap.String("user_id", rec.UserID),
			zap.String("feature", rec.Feature.String()),
		)
	}
}

// Compile-time check
var _ quota.AuditRecorder = (*Recorder)(nil)
