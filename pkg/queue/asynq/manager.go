package asynq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"queuepanel/internal/model"
	"queuepanel/pkg/config"
	"queuepanel/pkg/interfaces"
	"queuepanel/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TypeIntentDispatch = "panel:intent"

	intentTimeout = 30 * time.Second
)

// Manager buffers mutation intents in an asynq queue and, when a forwarder is
// registered, delivers them to the remote queue from a local worker.
type Manager struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	queueName string
	maxRetry  int
}

var _ interfaces.IntentSink = (*Manager)(nil)

// NewManager creates queue manager
func NewManager(cfg *config.Config) (*Manager, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is required for the intent queue")
	}
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				cfg.Queue.Name: 10,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Second
			},
		},
	)

	return &Manager{
		client:    asynq.NewClient(redisOpt),
		server:    server,
		mux:       asynq.NewServeMux(),
		queueName: cfg.Queue.Name,
		maxRetry:  cfg.Queue.MaxRetry,
	}, nil
}

// Dispatch enqueues a mutation intent
func (m *Manager) Dispatch(ctx context.Context, intent model.Intent) error {
	task, opts, err := newIntentTask(intent, m.queueName, m.maxRetry)
	if err != nil {
		return err
	}

	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue intent: %w", err)
	}

	logger.InfoCtx(ctx, "intent enqueued, intent_id: %s, kind: %s, queue: %s", intent.ID, intent.Kind, info.Queue)
	return nil
}

// newIntentTask builds the asynq task for intent. The intent id doubles as the
// task id so a retried dispatch is not enqueued twice.
func newIntentTask(intent model.Intent, queueName string, maxRetry int) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(intent)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal intent: %w", err)
	}
	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.Timeout(intentTimeout),
		asynq.MaxRetry(maxRetry),
	}
	if intent.ID != "" {
		opts = append(opts, asynq.TaskID(intent.ID))
	}
	return asynq.NewTask(TypeIntentDispatch, payload), opts, nil
}

// ForwardTo registers the handler that delivers queued intents to sink
func (m *Manager) ForwardTo(sink interfaces.IntentSink) {
	m.RegisterHandler(TypeIntentDispatch, NewForwarder(sink))
}

// RegisterHandler registers task handler
func (m *Manager) RegisterHandler(pattern string, handler asynq.Handler) {
	m.mux.Handle(pattern, handler)
}

// Start starts queue processor
func (m *Manager) Start() error {
	logger.InfoCtx(context.Background(), "starting intent queue server, queue: %s", m.queueName)
	return m.server.Start(m.mux)
}

// Stop stops queue processor
func (m *Manager) Stop() {
	logger.InfoCtx(context.Background(), "stopping intent queue server")
	m.server.Stop()
	m.server.Shutdown()
}

// Close closes client
func (m *Manager) Close() error {
	return m.client.Close()
}

// Forwarder is the asynq handler that hands queued intents to another sink
type Forwarder struct {
	sink interfaces.IntentSink
}

// NewForwarder creates an intent forwarder
func NewForwarder(sink interfaces.IntentSink) *Forwarder {
	return &Forwarder{sink: sink}
}

// ProcessTask implements asynq.Handler
func (f *Forwarder) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var intent model.Intent
	if err := json.Unmarshal(task.Payload(), &intent); err != nil {
		// a payload that never decodes is not worth retrying
		return fmt.Errorf("failed to unmarshal intent: %v: %w", err, asynq.SkipRetry)
	}
	if err := f.sink.Dispatch(ctx, intent); err != nil {
		return fmt.Errorf("failed to forward intent %s: %w", intent.ID, err)
	}
	logger.DebugCtx(ctx, "intent forwarded, intent_id: %s", intent.ID)
	return nil
}
