package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/deepflow/pkg/api"
)

// RedisFlowStore is a FlowStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>flow:<id>                => JSON flow record
//	<prefix>idx:all                  => SET of all flow ids
//	<prefix>idx:intent:<intent>      => SET of flow ids with that intent
//
// The intent index is best-effort; ListFlows always re-checks the decoded
// record against the filter.
type RedisFlowStore struct {
	client *redis.Client
	prefix string
}

var _ FlowStore = (*RedisFlowStore)(nil)

// NewRedisFlowStore creates a RedisFlowStore.
// prefix is optional but recommended (e.g. "deepflow:").
func NewRedisFlowStore(client *redis.Client, prefix string) *RedisFlowStore {
	if prefix == "" {
		prefix = "deepflow:"
	}
	return &RedisFlowStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisFlowStore) keyFlow(id string) string {
	return s.prefix + "flow:" + id
}

func (s *RedisFlowStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisFlowStore) keyIntent(intent string) string {
	return s.prefix + "idx:intent:" + intent
}

func (s *RedisFlowStore) SaveFlow(ctx context.Context, rec api.FlowRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	// Drop the old intent index entry if the intent changed.
	old, err := s.GetFlow(ctx, rec.ID)
	if err != nil && !errors.Is(err, ErrFlowNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyFlow(rec.ID), data, 0)
	pipe.SAdd(ctx, s.keyAll(), rec.ID)
	if err == nil && old.Intent != rec.Intent {
		pipe.SRem(ctx, s.keyIntent(old.Intent), rec.ID)
	}
	pipe.SAdd(ctx, s.keyIntent(rec.Intent), rec.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisFlowStore) GetFlow(ctx context.Context, id string) (api.FlowRecord, error) {
	data, err := s.client.Get(ctx, s.keyFlow(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return api.FlowRecord{}, ErrFlowNotFound
		}
		return api.FlowRecord{}, err
	}
	return DecodeRecord(data)
}

func (s *RedisFlowStore) ListFlows(ctx context.Context, filter FlowFilter) ([]api.FlowRecord, error) {
	key := s.keyAll()
	if filter.Intent != "" {
		key = s.keyIntent(filter.Intent)
	}
	ids, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var out []api.FlowRecord
	for _, id := range ids {
		rec, err := s.GetFlow(ctx, id)
		if errors.Is(err, ErrFlowNotFound) {
			// Stale index entry.
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *RedisFlowStore) DeleteFlow(ctx context.Context, id string) error {
	rec, err := s.GetFlow(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keyFlow(id))
	pipe.SRem(ctx, s.keyAll(), id)
	pipe.SRem(ctx, s.keyIntent(rec.Intent), id)
	_, err = pipe.Exec(ctx)
	return err
}
