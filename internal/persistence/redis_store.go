package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// RedisRunStore is a RunStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>run:<id>              => gob-encoded redisRunPayload
//	<prefix>idx:all               => SET of all run IDs
//	<prefix>idx:wf:<workflow>     => SET of run IDs for a given workflow
//	<prefix>idx:status:<status>   => SET of run IDs for a given status
//
// The indexes are best-effort; they are always updated on Save/Update, and
// ListRuns filters by the decoded payload so stale index entries are harmless.
type RedisRunStore struct {
	client *redis.Client
	prefix string
}

var _ RunStore = (*RedisRunStore)(nil)

type redisRunPayload struct {
	ID        string
	Workflow  string
	Status    string
	StartedAt int64
	Result    []byte
	Error     string
}

// NewRedisRunStore creates a RedisRunStore.
// prefix is optional but recommended (e.g. "jobapp:").
func NewRedisRunStore(client *redis.Client, prefix string) *RedisRunStore {
	if prefix == "" {
		prefix = "jobapp:"
	}
	return &RedisRunStore{client: client, prefix: prefix}
}

func (s *RedisRunStore) keyRun(id string) string {
	return s.prefix + "run:" + id
}

func (s *RedisRunStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisRunStore) keyWorkflow(name string) string {
	return s.prefix + "idx:wf:" + name
}

func (s *RedisRunStore) keyStatus(status flow.Status) string {
	return s.prefix + "idx:status:" + string(status)
}

func encodeRedisPayload(run *flow.Run) ([]byte, error) {
	result, err := encodeValue(run.Result)
	if err != nil {
		return nil, err
	}

	payload := redisRunPayload{
		ID:        run.ID,
		Workflow:  run.WorkflowName,
		Status:    string(run.Status),
		StartedAt: run.StartedAt.UnixNano(),
		Result:    result,
		Error:     errString(run.Err),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisPayload(data []byte) (*flow.Run, error) {
	if len(data) == 0 {
		return nil, ErrRunNotFound
	}
	var payload redisRunPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, err
	}

	result, err := decodeValue(payload.Result)
	if err != nil {
		return nil, err
	}

	run := &flow.Run{
		ID:           payload.ID,
		WorkflowName: payload.Workflow,
		Status:       flow.Status(payload.Status),
		StartedAt:    time.Unix(0, payload.StartedAt),
		Result:       result,
	}
	if payload.Error != "" {
		run.Err = errors.New(payload.Error)
	}
	return run, nil
}

func (s *RedisRunStore) write(run *flow.Run) error {
	ctx := context.Background()

	data, err := encodeRedisPayload(run)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.keyRun(run.ID), data, 0).Err(); err != nil {
		return err
	}

	// Index updates are best-effort; stale entries are filtered on read.
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAll(), run.ID)
	pipe.SAdd(ctx, s.keyWorkflow(run.WorkflowName), run.ID)
	pipe.SAdd(ctx, s.keyStatus(run.Status), run.ID)
	_, _ = pipe.Exec(ctx)

	return nil
}

func (s *RedisRunStore) SaveRun(run *flow.Run) error {
	return s.write(run)
}

func (s *RedisRunStore) UpdateRun(run *flow.Run) error {
	exists, err := s.client.Exists(context.Background(), s.keyRun(run.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrRunNotFound
	}
	return s.write(run)
}

func (s *RedisRunStore) GetRun(id string) (*flow.Run, error) {
	data, err := s.client.Get(context.Background(), s.keyRun(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return decodeRedisPayload(data)
}

func (s *RedisRunStore) ListRuns(filter RunFilter) ([]*flow.Run, error) {
	ctx := context.Background()

	var (
		ids []string
		err error
	)
	switch {
	case filter.WorkflowName != "" && filter.Status != "":
		ids, err = s.client.SInter(ctx,
			s.keyWorkflow(filter.WorkflowName),
			s.keyStatus(filter.Status),
		).Result()
	case filter.WorkflowName != "":
		ids, err = s.client.SMembers(ctx, s.keyWorkflow(filter.WorkflowName)).Result()
	case filter.Status != "":
		ids, err = s.client.SMembers(ctx, s.keyStatus(filter.Status)).Result()
	default:
		ids, err = s.client.SMembers(ctx, s.keyAll()).Result()
	}
	if err != nil {
		return nil, err
	}

	var result []*flow.Run
	for _, id := range ids {
		run, err := s.GetRun(id)
		if errors.Is(err, ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		// Re-check against the payload: index sets may hold stale members
		// from earlier status transitions.
		if filter.WorkflowName != "" && run.WorkflowName != filter.WorkflowName {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		result = append(result, run)
	}
	return result, nil
}
