package messaging

import (
	"context"
	"encoding/json"
	"time"

	"tradewages/common/errors"
	"tradewages/common/telemetry"
	"tradewages/services/ingestion/internal/config"
	"tradewages/services/ingestion/internal/events"
	"tradewages/services/ingestion/internal/models"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("tradewages/ingestion/messaging")

type Publisher interface {
	PublishProgramSalary(ctx context.Context, record models.ProgramSalaryRecord) error
	PublishRunCompleted(ctx context.Context, event events.RunCompletedEvent) error
	Close()
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewPublisher(logger *zap.Logger, config *config.Config) (Publisher, error) {
	opts := []nats.Option{
		nats.Name("tradewages-ingestion"),
		nats.Timeout(config.NATSConnTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, errors.UpstreamUnavailable("connecting to NATS", err)
	}

	return &natsPublisher{
		conn:   conn,
		logger: logger,
	}, nil
}

func (p *natsPublisher) PublishProgramSalary(ctx context.Context, record models.ProgramSalaryRecord) error {
	_, span := tracer.Start(ctx, "PublishProgramSalary")
	defer span.End()

	data, err := json.Marshal(events.NewProgramSalaryEvent(record))
	if err != nil {
		telemetry.Fail(span, err)
		return errors.Internal("marshaling program salary", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", events.ProgramSalarySubject),
		telemetry.String("record.key", record.Key()),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(events.ProgramSalarySubject, data); err != nil {
		telemetry.Fail(span, err)
		p.logger.Error("failed to publish program salary",
			zap.String("key", record.Key()),
			zap.Error(err))
		return errors.Internal("publishing to NATS", err)
	}

	p.logger.Debug("published program salary",
		zap.String("key", record.Key()),
		zap.Int("occupations", len(record.Occupations)),
		zap.String("subject", events.ProgramSalarySubject))
	return nil
}

func (p *natsPublisher) PublishRunCompleted(ctx context.Context, event events.RunCompletedEvent) error {
	_, span := tracer.Start(ctx, "PublishRunCompleted")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		telemetry.Fail(span, err)
		return errors.Internal("marshaling run summary", err)
	}

	if err := p.conn.Publish(events.RunCompletedSubject, data); err != nil {
		telemetry.Fail(span, err)
		return errors.Internal("publishing to NATS", err)
	}
	// Flush so the summary is not lost when a one-shot run exits right after.
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		p.logger.Warn("failed to flush NATS connection", zap.Error(err))
	}

	p.logger.Debug("published run summary", zap.String("run_id", event.RunID))
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}
