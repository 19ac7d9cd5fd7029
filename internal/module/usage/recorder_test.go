package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/echoverse/server/internal/module/quota"
)

type captureAppender struct {
	mu      sync.Mutex
	appends []record
	err     error
}

func (a *captureAppender) Append(_ context.Context, userID string, feature quota.Feature, premium bool) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	a.appends = append(a.appends, record{UserID: userID, Feature: feature, Premium: premium})
	return int64(len(a.appends)), nil
}

func (a *captureAppender) snapshot() []record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]record(nil), a.appends...)
}

func TestRecorder_PersistsQueuedRecords(t *testing.T) {
	appender := &captureAppender{}
	r := NewRecorder(appender, zap.NewNop(), 16)

	r.Record("u1", quota.FeatureTextInput, true)
	r.Record("u2", quota.FeatureVoiceUpload, true)
	r.Close()

	got := appender.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, quota.FeatureTextInput, got[0].Feature)
	assert.True(t, got[0].Premium)
	assert.Equal(t, quota.FeatureVoiceUpload, got[1].Feature)
}

func TestRecorder_CloseFlushesBuffer(t *testing.T) {
	appender := &captureAppender{}
	r := NewRecorder(appender, zap.NewNop(), 100)

	for i := 0; i < 50; i++ {
		r.Record("u1", quota.FeatureTextInput, true)
	}
	r.Close()

	assert.Len(t, appender.snapshot(), 50)
}

func TestRecorder_AppendFailureDoesNotBlock(t *testing.T) {
	appender := &captureAppender{err: errors.New("db down")}
	r := NewRecorder(appender, zap.NewNop(), 4)

	done := make(chan struct{})
	go func() {
		r.Record("u1", quota.FeatureTextInput, true)
		r.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder blocked on failing appender")
	}
}

func TestRecorder_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	// An appender that never returns until released, so the buffer fills up.
	release := make(chan struct{})
	blocking := &blockingAppender{release: release}
	r := NewRecorder(blocking, zap.NewNop(), 1)

	// First record occupies the worker, second fills the buffer, the rest
	// must be dropped without blocking the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			r.Record("u1", quota.FeatureTextInput, true)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full buffer")
	}

	close(release)
	r.Close()
}

type blockingAppender struct {
	release chan struct{}
	n       int
	mu      sync.Mutex
}

func (a *blockingAppender) Append(context.Context, string, quota.Feature, bool) (int64, error) {
	<-a.release
	a.mu.Lock()
	defer a.mu.Unlock()
	a.n++
	return int64(a.n), nil
}
