// Package audit emits session/report transition events for the external
// audit trail and for reactive UI consumers. Events are published after the
// owning transaction commits, best-effort: a publish failure is logged, never
// propagated into the business operation.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"transitdesk/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// TransitionChannel is the pub/sub channel UI widgets subscribe to.
	TransitionChannel = "shifts:transitions"
	// TrailList is the durable list the audit trail system drains.
	TrailList = "audit:shift-transitions"
)

// TransitionEvent records one successful state transition.
type TransitionEvent struct {
	SessionID  uuid.UUID         `json:"session_id"`
	ReportID   *uuid.UUID        `json:"report_id,omitempty"`
	FromStatus string            `json:"from_status"`
	ToStatus   string            `json:"to_status"`
	ActorID    uuid.UUID         `json:"actor_id"`
	Scope      model.TenantScope `json:"scope"`
	At         time.Time         `json:"at"`
}

// Publisher fans a transition event out to its consumers.
type Publisher interface {
	PublishTransition(ctx context.Context, ev TransitionEvent)
}

// RedisPublisher pushes each event onto the durable trail list and announces
// it on the pub/sub channel.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) PublishTransition(ctx context.Context, ev TransitionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("audit: marshal transition event")
		return
	}
	if err := p.rdb.LPush(ctx, TrailList, data).Err(); err != nil {
		log.Error().Err(err).
			Str("session_id", ev.SessionID.String()).
			Msg("audit: trail push failed")
	}
	if err := p.rdb.Publish(ctx, TransitionChannel, data).Err(); err != nil {
		log.Error().Err(err).
			Str("session_id", ev.SessionID.String()).
			Msg("audit: transition publish failed")
	}
}

// Nop discards events; used in unit tests.
type Nop struct{}

func (Nop) PublishTransition(context.Context, TransitionEvent) {}
