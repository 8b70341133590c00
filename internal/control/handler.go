package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/tavernlight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// commandTimeout bounds the orchestrator call behind one command.
const commandTimeout = 10 * time.Second

// commandQoS is used for the command subscription.
const commandQoS = 1

// Logger is the logging interface used by the handler.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broker is the subset of the MQTT client the handler needs.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishJSON(topic string, v any, retained bool) error
}

// Orchestrator is the set of session operations reachable over MQTT.
type Orchestrator interface {
	StartScene(ctx context.Context, id string) error
	StopScene(ctx context.Context)
	ExecuteTrigger(ctx context.Context, id string) (string, error)
	StopAll(ctx context.Context)
}

// Handler routes MQTT commands to the orchestrator.
//
// Thread Safety: Start and Stop must not race each other. Message handling
// is safe for concurrent use.
type Handler struct {
	broker Broker
	orch   Orchestrator
	topics mqtt.Topics

	mu     sync.Mutex
	ctx    context.Context //nolint:containedctx // parent for command timeouts, cancelled on Stop
	cancel context.CancelFunc

	logger Logger
	now    func() time.Time
}

// NewHandler creates a handler. Call Start to subscribe.
func NewHandler(broker Broker, orch Orchestrator) *Handler {
	return &Handler{
		broker: broker,
		orch:   orch,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the handler.
func (h *Handler) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	h.logger = logger
}

// Start subscribes to every command topic. Commands are processed until
// ctx is cancelled or Stop is called.
func (h *Handler) Start(ctx context.Context) error {
	h.mu.Lock()
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.mu.Unlock()

	topic := h.topics.AllCommands()
	if err := h.broker.Subscribe(topic, commandQoS, h.HandleMessage); err != nil {
		h.cancel()
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	h.logger.Info("remote control listening", "topic", topic)
	return nil
}

// Stop unsubscribes and cancels commands still in flight.
func (h *Handler) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if err := h.broker.Unsubscribe(h.topics.AllCommands()); err != nil {
		h.logger.Warn("unsubscribe from commands failed", "error", err)
	}
}

// HandleMessage processes one command message and publishes its Ack.
// The returned error is the rejection reason, if any.
func (h *Handler) HandleMessage(topic string, payload []byte) error {
	action, ok := h.topics.CommandAction(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, topic)
	}

	var cmd Command
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.reject(action, cmd, ErrCodeInvalidPayload, err.Error())
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}

	ctx, cancel := context.WithTimeout(h.parent(), commandTimeout)
	defer cancel()

	h.logger.Info("remote command received", "action", action, "id", cmd.ID, "request_id", cmd.RequestID)

	var (
		executionID string
		err         error
	)
	switch action {
	case mqtt.CommandSceneStart:
		if cmd.ID == "" {
			h.reject(action, cmd, ErrCodeMissingID, "scene id is required")
			return ErrMissingID
		}
		err = h.orch.StartScene(ctx, cmd.ID)
	case mqtt.CommandSceneStop:
		h.orch.StopScene(ctx)
	case mqtt.CommandTriggerExecute:
		if cmd.ID == "" {
			h.reject(action, cmd, ErrCodeMissingID, "trigger id is required")
			return ErrMissingID
		}
		executionID, err = h.orch.ExecuteTrigger(ctx, cmd.ID)
	case mqtt.CommandStopAll:
		h.orch.StopAll(ctx)
	default:
		h.reject(action, cmd, ErrCodeUnknownAction, "unknown action "+action)
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	if err != nil {
		h.reject(action, cmd, errorCode(err), err.Error())
		return err
	}

	h.ack(Ack{
		RequestID:   cmd.RequestID,
		Action:      action,
		Status:      AckAccepted,
		ID:          cmd.ID,
		ExecutionID: executionID,
	})
	return nil
}

func (h *Handler) parent() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx == nil {
		return context.Background()
	}
	return h.ctx
}

func (h *Handler) reject(action string, cmd Command, code, msg string) {
	h.logger.Warn("remote command rejected", "action", action, "id", cmd.ID, "code", code, "reason", msg)
	h.ack(Ack{
		RequestID: cmd.RequestID,
		Action:    action,
		Status:    AckRejected,
		ID:        cmd.ID,
		Error:     &AckError{Code: code, Message: msg},
	})
}

func (h *Handler) ack(a Ack) {
	a.Timestamp = h.now().UTC()
	if err := h.broker.PublishJSON(h.topics.CommandAck(a.Action), a, false); err != nil {
		h.logger.Warn("command ack publish failed", "action", a.Action, "error", err)
	}
}

// errorCode maps orchestrator errors to Ack codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrSceneNotFound), errors.Is(err, orchestrator.ErrTriggerNotFound):
		return ErrCodeNotFound
	case errors.Is(err, orchestrator.ErrShuttingDown):
		return ErrCodeShuttingDown
	default:
		return ErrCodeInternal
	}
}
