package redisq

import (
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var _ ports.TaskQueue = (*Client)(nil)

const taskField = "task"

func stateKey(id string) string { return fmt.Sprintf("task:%s", id) }

// Enqueue publishes t and records it as PENDING. It returns the task id.
func (c *Client) Enqueue(ctx context.Context, t domain.Task) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Status = domain.StatusPending

	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	streamID, err := c.Rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.Cfg.StreamKey,
		Values: map[string]interface{}{taskField: b},
	}).Result()
	if err != nil {
		return "", err
	}

	log.Ctx(ctx).Debug().Str("task_id", t.ID).Str("stream_id", streamID).Msg("task enqueued")
	_ = c.SaveState(ctx, t)
	return t.ID, nil
}

// Claim reads one new envelope for consumer. It returns a nil task when
// the block time passes without messages. Envelopes that do not decode are
// moved to the DLQ and skipped.
func (c *Client) Claim(ctx context.Context, consumer string, block time.Duration) (*domain.Task, string, error) {
	res, err := c.Rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.Cfg.Group,
		Consumer: consumer,
		Streams:  []string{c.Cfg.StreamKey, ">"},
		Count:    1,
		Block:    block,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}

	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil, "", nil
	}

	msg := res[0].Messages[0]
	t, err := decodeEnvelope(msg.Values)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("stream_id", msg.ID).Msg("dropping malformed envelope")
		if derr := c.deadLetter(ctx, msg.ID, msg.Values, err.Error()); derr != nil {
			return nil, "", derr
		}
		return nil, "", nil
	}
	return t, msg.ID, nil
}

func decodeEnvelope(values map[string]interface{}) (*domain.Task, error) {
	var raw []byte
	switch v := values[taskField].(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, fmt.Errorf("unexpected task type: %T", v)
	}

	var t domain.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if t.ID == "" {
		return nil, errors.New("decode task: missing id")
	}
	return &t, nil
}

func (c *Client) Ack(ctx context.Context, streamID string) error {
	return c.Rdb.XAck(ctx, c.Cfg.StreamKey, c.Cfg.Group, streamID).Err()
}

// ToDLQ copies the failed task to the DLQ stream and acks the original.
func (c *Client) ToDLQ(ctx context.Context, streamID string, t domain.Task, reason string) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	return c.deadLetter(ctx, streamID, map[string]interface{}{taskField: b}, reason)
}

func (c *Client) deadLetter(ctx context.Context, streamID string, values map[string]interface{}, reason string) error {
	entry := make(map[string]interface{}, len(values)+2)
	for k, v := range values {
		entry[k] = v
	}
	entry["reason"] = reason
	entry["source_id"] = streamID

	if err := c.Rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.Cfg.DLQStreamKey,
		Values: entry,
	}).Err(); err != nil {
		return err
	}
	return c.Ack(ctx, streamID)
}

// SaveState stores t as JSON under task:<id>, expiring after ResultTTL.
func (c *Client) SaveState(ctx context.Context, t domain.Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	return c.Rdb.Set(ctx, stateKey(t.ID), b, c.Cfg.ResultTTL).Err()
}

// Get returns the stored task, or nil when nothing is stored under id.
func (c *Client) Get(ctx context.Context, id string) (*domain.Task, error) {
	b, err := c.Rdb.Get(ctx, stateKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var t domain.Task
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &t, nil
}
