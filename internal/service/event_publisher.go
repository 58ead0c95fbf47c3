package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ecourt-scraper/internal/entity"
)

// JobEvent is the message published for each job transition.
type JobEvent struct {
	JobID     string             `json:"job_id"`
	Kind      entity.RequestKind `json:"kind"`
	Status    entity.JobStatus   `json:"status"`
	ErrorKind entity.ErrorKind   `json:"error_kind,omitempty"`
	Error     string             `json:"error,omitempty"`
	At        time.Time          `json:"at"`
}

// RedisPublisher broadcasts job transitions on a pub/sub channel and keeps
// the latest events in a capped list ({channel}:recent) for late readers.
type RedisPublisher struct {
	rdb     redis.Cmdable
	channel string
	keep    int64
	log     *slog.Logger
}

func NewRedisPublisher(rdb redis.Cmdable, channel string, log *slog.Logger) *RedisPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &RedisPublisher{rdb: rdb, channel: channel, keep: 500, log: log}
}

func (p *RedisPublisher) RecentKey() string {
	return p.channel + ":recent"
}

// JobChanged implements Observer. Redis errors are logged, never returned:
// events are advisory and must not affect the job.
func (p *RedisPublisher) JobChanged(ctx context.Context, job *entity.Job) {
	ev := JobEvent{
		JobID:     job.ID.String(),
		Kind:      job.Request.Kind,
		Status:    job.Status,
		ErrorKind: job.ErrorKind,
		At:        time.Now().UTC(),
	}
	if job.Error != nil {
		ev.Error = *job.Error
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("encode job event", "job_id", ev.JobID, "err", err)
		return
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.log.Warn("publish job event", "job_id", ev.JobID, "status", ev.Status, "err", err)
		return
	}
	if err := p.rdb.LPush(ctx, p.RecentKey(), payload).Err(); err != nil {
		p.log.Warn("record job event", "job_id", ev.JobID, "err", err)
		return
	}
	if err := p.rdb.LTrim(ctx, p.RecentKey(), 0, p.keep-1).Err(); err != nil {
		p.log.Warn("trim job events", "err", err)
	}
}
