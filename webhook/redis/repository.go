package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-inspector/webhook"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of webhook.Repository
 * Each record is a hash; a sorted set with every score at 0 indexes the ids.
 * Equal scores make ZRANGEBYLEX order by member bytes, and UUIDv7 text sorts
 * by creation time, so the index doubles as the keyset range.
 */

const (
	hashPrefix = "webhook"        // Hash naming: webhook:{id}
	indexKey   = "webhooks:index" // Sorted set of ids, score 0
)

type Repository struct {
	client *redis.Client
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Repository{
		client: client,
	}, nil
}

// Insert writes the hash and the index entry in one MULTI/EXEC
func (r *Repository) Insert(ctx context.Context, d webhook.Draft) (webhook.Webhook, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("generating id: %w", err)
	}

	wh := webhook.Webhook{
		ID:        id.String(),
		Draft:     d,
		CreatedAt: time.Now().UTC(),
	}
	if wh.Headers == nil {
		wh.Headers = map[string]string{}
	}

	fields, err := toHash(wh)
	if err != nil {
		return webhook.Webhook{}, err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKey(wh.ID), fields)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: 0, Member: wh.ID})
		return nil
	})
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("storing webhook: %w", err)
	}

	return wh, nil
}

/* ListBefore returns up to n summaries older than cursor, newest first
 * Index entries whose hash is already gone are skipped and the walk reads on
 * past them, so a short result always means the index is exhausted
 */
func (r *Repository) ListBefore(ctx context.Context, cursor string, n int) ([]webhook.Summary, error) {
	max := "+"
	if cursor != "" {
		max = "(" + cursor
	}

	summaries := []webhook.Summary{}
	for len(summaries) < n {
		want := n - len(summaries)
		ids, err := r.client.ZRevRangeByLex(ctx, indexKey, &redis.ZRangeBy{
			Min:   "-",
			Max:   max,
			Count: int64(want),
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("reading index: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		batch, err := r.summaries(ctx, ids)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, batch...)

		if len(ids) < want {
			break
		}
		max = "(" + ids[len(ids)-1]
	}
	return summaries, nil
}

// summaries reads the listing fields of ids, dropping ids without a hash
func (r *Repository) summaries(ctx context.Context, ids []string) ([]webhook.Summary, error) {
	cmds := make([]*redis.SliceCmd, len(ids))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HMGet(ctx, hashKey(id), "method", "pathname", "created_at")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading webhooks: %w", err)
	}

	summaries := make([]webhook.Summary, 0, len(ids))
	for i, cmd := range cmds {
		values := cmd.Val()
		method, _ := values[0].(string)
		pathname, _ := values[1].(string)
		created, ok := values[2].(string)
		if !ok {
			// removed between the index read and the hash read
			continue
		}
		createdAt, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		summaries = append(summaries, webhook.Summary{
			ID:        ids[i],
			Method:    method,
			Pathname:  pathname,
			CreatedAt: createdAt,
		})
	}
	return summaries, nil
}

// Get retrieves a webhook by ID from its hash
func (r *Repository) Get(ctx context.Context, id string) (webhook.Webhook, error) {
	data, err := r.client.HGetAll(ctx, hashKey(id)).Result()
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}
	if len(data) == 0 {
		return webhook.Webhook{}, webhook.ErrNotFound
	}
	return fromHash(data)
}

// Count returns the size of the index
func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.client.ZCard(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("counting webhooks: %w", err)
	}
	return n, nil
}

// Delete removes the hash and the index entry in one MULTI/EXEC
func (r *Repository) Delete(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, indexKey, id)
		pipe.Del(ctx, hashKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	if removed.Val() == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// Helper functions

func hashKey(id string) string {
	return fmt.Sprintf("%s:%s", hashPrefix, id)
}

/* Absent values are absent fields: HGETALL never returns them,
 * which keeps nil and "" apart on the way back
 */
func toHash(wh webhook.Webhook) (map[string]interface{}, error) {
	headersJSON, err := json.Marshal(wh.Headers)
	if err != nil {
		return nil, fmt.Errorf("marshaling headers: %w", err)
	}

	fields := map[string]interface{}{
		"id":          wh.ID,
		"method":      wh.Method,
		"pathname":    wh.Pathname,
		"ip":          wh.IP,
		"status_code": wh.StatusCode,
		"headers":     string(headersJSON),
		"created_at":  wh.CreatedAt.Format(time.RFC3339Nano),
	}
	if wh.ContentType != nil {
		fields["content_type"] = *wh.ContentType
	}
	if wh.ContentLength != nil {
		fields["content_length"] = *wh.ContentLength
	}
	if wh.QueryParams != nil {
		queryJSON, err := json.Marshal(wh.QueryParams)
		if err != nil {
			return nil, fmt.Errorf("marshaling query params: %w", err)
		}
		fields["query_params"] = string(queryJSON)
	}
	if wh.Body != nil {
		fields["body"] = *wh.Body
	}
	return fields, nil
}

func fromHash(data map[string]string) (webhook.Webhook, error) {
	headers := make(map[string]string)
	if err := json.Unmarshal([]byte(data["headers"]), &headers); err != nil {
		return webhook.Webhook{}, fmt.Errorf("unmarshaling headers: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("parsing created_at: %w", err)
	}
	statusCode, err := strconv.Atoi(data["status_code"])
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("parsing status_code: %w", err)
	}

	wh := webhook.Webhook{
		ID: data["id"],
		Draft: webhook.Draft{
			Method:     data["method"],
			Pathname:   data["pathname"],
			IP:         data["ip"],
			StatusCode: statusCode,
			Headers:    headers,
		},
		CreatedAt: createdAt,
	}
	if v, ok := data["content_type"]; ok {
		wh.ContentType = &v
	}
	if v, ok := data["content_length"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return webhook.Webhook{}, fmt.Errorf("parsing content_length: %w", err)
		}
		wh.ContentLength = &n
	}
	if v, ok := data["query_params"]; ok {
		params := make(map[string]string)
		if err := json.Unmarshal([]byte(v), &params); err != nil {
			return webhook.Webhook{}, fmt.Errorf("unmarshaling query params: %w", err)
		}
		wh.QueryParams = params
	}
	if v, ok := data["body"]; ok {
		wh.Body = &v
	}
	return wh, nil
}
