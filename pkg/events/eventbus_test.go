package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptidemedia/riptide/pkg/interfaces"
	"github.com/riptidemedia/riptide/pkg/logger"
)

type captureHandler struct {
	eventType string
	err       error

	mu     sync.Mutex
	events []interfaces.Event
}

func (h *captureHandler) Handle(ctx context.Context, event interfaces.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *captureHandler) EventType() string { return h.eventType }

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus(logger.NewNoop())
	handler := &captureHandler{eventType: "pass.completed"}
	require.NoError(t, bus.Subscribe("pass.completed", handler))

	event := NewAggregateEvent("pass.completed", "examplesite", map[string]interface{}{"scraped": 3})
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Equal(t, 1, handler.count())
	assert.Equal(t, "examplesite", handler.events[0].AggregateID())
}

func TestPublishSkipsOtherEventTypes(t *testing.T) {
	bus := NewInMemoryEventBus(logger.NewNoop())
	handler := &captureHandler{eventType: "pass.completed"}
	require.NoError(t, bus.Subscribe("pass.completed", handler))

	require.NoError(t, bus.Publish(context.Background(), NewEvent("other.event", nil)))
	assert.Equal(t, 0, handler.count())
}

func TestPublishContinuesPastFailingHandler(t *testing.T) {
	bus := NewInMemoryEventBus(logger.NewNoop())
	failing := &captureHandler{eventType: "pass.completed", err: errors.New("handler broken")}
	healthy := &captureHandler{eventType: "pass.completed"}
	require.NoError(t, bus.Subscribe("pass.completed", failing))
	require.NoError(t, bus.Subscribe("pass.completed", healthy))

	require.NoError(t, bus.Publish(context.Background(), NewEvent("pass.completed", nil)))
	assert.Equal(t, 1, healthy.count())
}

func TestPublishAsyncCompletesBeforeStop(t *testing.T) {
	bus := NewInMemoryEventBus(logger.NewNoop())
	handler := &captureHandler{eventType: "pass.completed"}
	require.NoError(t, bus.Subscribe("pass.completed", handler))

	for i := 0; i < 10; i++ {
		bus.PublishAsync(context.Background(), NewEvent("pass.completed", nil))
	}
	require.NoError(t, bus.Stop())
	assert.Equal(t, 10, handler.count())
}
