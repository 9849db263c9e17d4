package events

import (
	"context"
	"fmt"

	"tradewages/services/processing/internal/config"
	"tradewages/services/processing/internal/processor"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ProgramSalarySubject = "wages.program.merged"
	RunCompletedSubject  = "wages.run.completed"
)

type Handler struct {
	logger    *zap.Logger
	nc        *nats.Conn
	tracer    trace.Tracer
	processor *processor.ProgramSalaryProcessor
	config    *config.Config
	subs      []*nats.Subscription
}

func NewHandler(logger *zap.Logger, nc *nats.Conn, tracer trace.Tracer, processor *processor.ProgramSalaryProcessor, config *config.Config) *Handler {
	return &Handler{
		logger:    logger,
		nc:        nc,
		tracer:    tracer,
		processor: processor,
		config:    config,
	}
}

func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) error {
	for subject, handle := range map[string]nats.MsgHandler{
		ProgramSalarySubject: h.handleProgramSalary,
		RunCompletedSubject:  h.handleRunCompleted,
	} {
		sub, err := h.nc.QueueSubscribe(subject, h.config.NATSQueueGroup, handle)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}
		h.subs = append(h.subs, sub)
	}

	h.logger.Info("Registered NATS subscriptions",
		zap.Strings("subjects", []string{ProgramSalarySubject, RunCompletedSubject}),
		zap.String("queue", h.config.NATSQueueGroup))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			for _, sub := range h.subs {
				if err := sub.Drain(); err != nil {
					return err
				}
			}
			return nil
		},
	})

	return nil
}

func (h *Handler) handleProgramSalary(msg *nats.Msg) {
	ctx, span := h.tracer.Start(context.Background(), "handleProgramSalary")
	defer span.End()

	if err := h.processor.ProcessProgramSalary(ctx, msg.Data); err != nil {
		h.logger.Error("Failed to process program salary",
			zap.Error(err),
			zap.String("subject", msg.Subject),
		)
		return
	}

	h.logger.Debug("Processed program salary",
		zap.String("subject", msg.Subject),
	)
}

func (h *Handler) handleRunCompleted(msg *nats.Msg) {
	ctx, span := h.tracer.Start(context.Background(), "handleRunCompleted")
	defer span.End()

	if err := h.processor.ProcessRunCompleted(ctx, msg.Data); err != nil {
		h.logger.Error("Failed to process run summary",
			zap.Error(err),
			zap.String("subject", msg.Subject),
		)
	}
}
