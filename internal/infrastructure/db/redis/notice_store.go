package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finportal/portal/internal/core/domain"
)

// NoticeStore keeps the notices visible to one visitor.
// Key format: portal:visitor:<visitor_id>:notice:<notice_key>
// Index:      portal:visitor:<visitor_id>:notices (set of notice keys)
//
// A notice stays visible until it is removed or its key expires, so SET NX on
// the notice key is what suppresses duplicates.
type NoticeStore struct {
	client    *redis.Client
	visitorID string
}

func NewNoticeStore(client *redis.Client, visitorID string) *NoticeStore {
	return &NoticeStore{client: client, visitorID: visitorID}
}

func (s *NoticeStore) Add(ctx context.Context, n domain.Notice, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return false, fmt.Errorf("encode notice: %w", err)
	}

	added, err := s.client.SetNX(ctx, s.noticeKey(n.Key), payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("notice add: %w", err)
	}
	if !added {
		return false, nil
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.indexKey(), n.Key)
	pipe.Expire(ctx, s.indexKey(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("notice index: %w", err)
	}
	return true, nil
}

// List returns the visible notices ordered as the index returns them. Keys
// that expired are pruned from the index.
func (s *NoticeStore) List(ctx context.Context) ([]domain.Notice, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("notice index: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	noticeKeys := make([]string, len(keys))
	for i, k := range keys {
		noticeKeys[i] = s.noticeKey(k)
	}
	values, err := s.client.MGet(ctx, noticeKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("notice list: %w", err)
	}

	notices := make([]domain.Notice, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, keys[i])
			continue
		}
		var n domain.Notice
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("decode notice %s: %w", keys[i], err)
		}
		notices = append(notices, n)
	}

	if len(expired) > 0 {
		if err := s.client.SRem(ctx, s.indexKey(), expired...).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return notices, fmt.Errorf("notice prune: %w", err)
		}
	}
	return notices, nil
}

func (s *NoticeStore) Remove(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.noticeKey(key))
	pipe.SRem(ctx, s.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notice remove: %w", err)
	}
	return nil
}

func (s *NoticeStore) noticeKey(key string) string {
	return visitorKey(s.visitorID, "notice:"+key)
}

func (s *NoticeStore) indexKey() string {
	return visitorKey(s.visitorID, "notices")
}
