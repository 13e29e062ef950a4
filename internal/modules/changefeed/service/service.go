package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"anoa.com/attachments/internal/entity"
	"github.com/redis/go-redis/v9"
)

// Channel is where attachment change sets are published.
const Channel = "attachments:changes"

const (
	ChangeInsert = "insert"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// Change is the change set of a single write: OldVal is nil for inserts and
// NewVal is nil for deletes.
type Change struct {
	Type   string             `json:"type"`
	OldVal *entity.Attachment `json:"old_val"`
	NewVal *entity.Attachment `json:"new_val"`
}

type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

type redisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher publishes on Channel. Without a redis client change sets
// are dropped.
func NewRedisPublisher(redisClient *redis.Client) Publisher {
	return &redisPublisher{redisClient: redisClient}
}

func (p *redisPublisher) Publish(ctx context.Context, change Change) error {
	if p.redisClient == nil {
		return nil
	}

	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode change set: %w", err)
	}

	if err := p.redisClient.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change set: %w", err)
	}
	return nil
}
