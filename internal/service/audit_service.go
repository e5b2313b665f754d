package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
)

// AuditService records security-relevant auth events to a capped Redis
// list. Recording is best-effort: failures are logged and never surface
// to the request that triggered the event.
type AuditService struct {
	dispatcher events.Dispatcher
	client     *redis.Client
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, client *redis.Client, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		client:     client,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.record)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.record)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.record)
	a.dispatcher.Subscribe(events.EventPasswordChanged, a.record)
}

func (a *AuditService) record(ctx context.Context, event events.Event) error {
	if a.client == nil {
		return nil
	}

	entry, err := json.Marshal(event)
	if err != nil {
		a.logger.Warn("audit entry marshal failed", zap.Error(err))
		return nil
	}

	pipe := a.client.TxPipeline()
	pipe.LPush(ctx, a.cfg.LogKey, entry)
	if a.cfg.MaxEntries > 0 {
		pipe.LTrim(ctx, a.cfg.LogKey, 0, a.cfg.MaxEntries-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		a.logger.Warn("audit entry write failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}

// defaultAuditLimit bounds Recent when the caller passes no usable
// limit. Clamping happens here only so handlers cannot disagree.
const defaultAuditLimit = 50

// Recent returns up to limit most recent audit entries, newest first.
// A zero or negative limit falls back to defaultAuditLimit.
func (a *AuditService) Recent(ctx context.Context, limit int64) ([]events.Event, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	raw, err := a.client.LRange(ctx, a.cfg.LogKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]events.Event, 0, len(raw))
	for _, item := range raw {
		var event events.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			continue
		}
		entries = append(entries, event)
	}
	return entries, nil
}
