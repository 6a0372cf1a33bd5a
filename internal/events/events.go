package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event represents a domain event
type Event interface {
	GetEventID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetUserID() *int64
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    *int64    `json:"user_id,omitempty"`
}

func (e *BaseEvent) GetEventID() string      { return e.EventID }
func (e *BaseEvent) GetEventType() string    { return e.EventType }
func (e *BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e *BaseEvent) GetUserID() *int64       { return e.UserID }

// EventBus defines event publishing and subscription
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event) error

	Subscribe(eventType string, handler EventHandler) error
	Unsubscribe(eventType string, handler EventHandler) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() error
	Stats() *EventBusStats
}

// EventHandler handles a single event
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	GetHandlerID() string
}

// EventHandlerFunc adapts a function to the EventHandler interface
type EventHandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

func (f EventHandlerFunc) GetHandlerID() string { return f.ID }

// NewEventHandlerFunc creates an EventHandler from a function
func NewEventHandlerFunc(id string, fn func(ctx context.Context, event Event) error) EventHandler {
	return EventHandlerFunc{ID: id, Func: fn}
}

// TypedEventHandler is a generic handler for a specific event type
type TypedEventHandler[T Event] struct {
	ID      string
	Handler func(ctx context.Context, event T) error
}

func (h TypedEventHandler[T]) Handle(ctx context.Context, event Event) error {
	if typed, ok := event.(T); ok {
		return h.Handler(ctx, typed)
	}
	return fmt.Errorf("event type mismatch: expected %T, got %T", *new(T), event)
}

func (h TypedEventHandler[T]) GetHandlerID() string { return h.ID }

// NewTypedEventHandler creates a typed event handler
func NewTypedEventHandler[T Event](id string, handler func(ctx context.Context, event T) error) EventHandler {
	return TypedEventHandler[T]{ID: id, Handler: handler}
}

// EventBusStats represents event bus statistics
type EventBusStats struct {
	EventsPublished int64         `json:"events_published"`
	EventsProcessed int64         `json:"events_processed"`
	EventsFailed    int64         `json:"events_failed"`
	HandlersCount   int           `json:"handlers_count"`
	QueueDepth      int           `json:"queue_depth"`
	Uptime          time.Duration `json:"uptime"`
}

// EventBusConfig holds configuration for the event bus
type EventBusConfig struct {
	BufferSize     int           `json:"buffer_size"`
	WorkerCount    int           `json:"worker_count"`
	HandlerTimeout time.Duration `json:"handler_timeout"`
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() *EventBusConfig {
	return &EventBusConfig{
		BufferSize:     1000,
		WorkerCount:    5,
		HandlerTimeout: 30 * time.Second,
	}
}

// ===============================
// IN-MEMORY EVENT BUS
// ===============================

type inMemoryEventBus struct {
	mu             sync.RWMutex
	handlers       map[string][]EventHandler
	eventQueue     chan eventMessage
	logger         *zap.Logger
	startTime      time.Time
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	bufferSize     int
	workerCount    int
	handlerTimeout time.Duration

	published int64
	processed int64
	failed    int64
}

type eventMessage struct {
	ctx   context.Context
	event Event
}

// NewInMemoryEventBus creates an in-memory event bus backed by a
// buffered channel and a fixed worker pool
func NewInMemoryEventBus(config *EventBusConfig, logger *zap.Logger) EventBus {
	if config == nil {
		config = DefaultEventBusConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &inMemoryEventBus{
		handlers:       make(map[string][]EventHandler),
		eventQueue:     make(chan eventMessage, config.BufferSize),
		logger:         logger,
		startTime:      time.Now(),
		ctx:            ctx,
		cancel:         cancel,
		bufferSize:     config.BufferSize,
		workerCount:    config.WorkerCount,
		handlerTimeout: config.HandlerTimeout,
	}
}

// NewEventBus creates the default event bus implementation
func NewEventBus(config *EventBusConfig, logger *zap.Logger) EventBus {
	return NewInMemoryEventBus(config, logger)
}

// Publish delivers an event synchronously to all subscribed handlers
func (b *inMemoryEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	atomic.AddInt64(&b.published, 1)

	if err := b.processEvent(ctx, event); err != nil {
		atomic.AddInt64(&b.failed, 1)
		return err
	}

	atomic.AddInt64(&b.processed, 1)
	return nil
}

// PublishAsync enqueues an event for background delivery. The event is
// processed with a context detached from the caller's so a finished
// HTTP request does not cancel the handlers.
func (b *inMemoryEventBus) PublishAsync(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	msg := eventMessage{ctx: context.WithoutCancel(ctx), event: event}

	select {
	case b.eventQueue <- msg:
		atomic.AddInt64(&b.published, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("event queue is full")
	}
}

// Subscribe registers a handler for an event type
func (b *inMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	b.logger.Info("handler subscribed",
		zap.String("event_type", eventType),
		zap.String("handler_id", handler.GetHandlerID()),
	)

	return nil
}

// Unsubscribe removes a handler for an event type
func (b *inMemoryEventBus) Unsubscribe(eventType string, handler EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h.GetHandlerID() == handler.GetHandlerID() {
			b.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("handler not found")
}

// Start launches the worker pool
func (b *inMemoryEventBus) Start(ctx context.Context) error {
	b.logger.Info("starting event bus", zap.Int("worker_count", b.workerCount))

	for i := 0; i < b.workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}

	return nil
}

// Stop stops the workers, waiting up to the context deadline
func (b *inMemoryEventBus) Stop(ctx context.Context) error {
	b.logger.Info("stopping event bus")

	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stop timeout")
		return ctx.Err()
	}
}

// Health reports an error when the bus is stopped or the queue is
// near capacity
func (b *inMemoryEventBus) Health() error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is stopped")
	default:
	}

	queueDepth := len(b.eventQueue)
	if queueDepth > b.bufferSize*80/100 {
		return fmt.Errorf("event queue is %d%% full", queueDepth*100/b.bufferSize)
	}

	return nil
}

// Stats returns event bus statistics
func (b *inMemoryEventBus) Stats() *EventBusStats {
	b.mu.RLock()
	handlersCount := 0
	for _, hs := range b.handlers {
		handlersCount += len(hs)
	}
	b.mu.RUnlock()

	return &EventBusStats{
		EventsPublished: atomic.LoadInt64(&b.published),
		EventsProcessed: atomic.LoadInt64(&b.processed),
		EventsFailed:    atomic.LoadInt64(&b.failed),
		HandlersCount:   handlersCount,
		QueueDepth:      len(b.eventQueue),
		Uptime:          time.Since(b.startTime),
	}
}

func (b *inMemoryEventBus) worker(workerID int) {
	defer b.wg.Done()

	b.logger.Debug("event bus worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case msg := <-b.eventQueue:
			if err := b.processEvent(msg.ctx, msg.event); err != nil {
				b.logger.Error("failed to process event",
					zap.Int("worker_id", workerID),
					zap.String("event_id", msg.event.GetEventID()),
					zap.String("event_type", msg.event.GetEventType()),
					zap.Error(err),
				)
				atomic.AddInt64(&b.failed, 1)
			} else {
				atomic.AddInt64(&b.processed, 1)
			}

		case <-b.ctx.Done():
			b.logger.Debug("event bus worker stopped", zap.Int("worker_id", workerID))
			return
		}
	}
}

func (b *inMemoryEventBus) processEvent(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[event.GetEventType()]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no handlers found for event",
			zap.String("event_type", event.GetEventType()),
			zap.String("event_id", event.GetEventID()),
		)
		return nil
	}

	var failed int
	for _, handler := range handlers {
		if err := b.executeHandler(ctx, handler, event); err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to execute %d out of %d handlers", failed, len(handlers))
	}

	return nil
}

func (b *inMemoryEventBus) executeHandler(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("handler_id", handler.GetHandlerID()),
				zap.String("event_type", event.GetEventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler %s panicked", handler.GetHandlerID())
		}
	}()

	handlerCtx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
	defer cancel()

	if err := handler.Handle(handlerCtx, event); err != nil {
		b.logger.Error("handler failed",
			zap.String("handler_id", handler.GetHandlerID()),
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("evt_%d", time.Now().UnixNano())
}
