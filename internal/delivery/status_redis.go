package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SendingTTL bounds how long a sending claim survives an instance that died
// mid-send.
const SendingTTL = 5 * time.Minute

const redisKeyPrefix = "delivery:status:"

// ErrClaimLost means the sending claim expired and another send took the
// order over before this one finished. The late outcome is not recorded.
var ErrClaimLost = errors.New("delivery: sending claim expired before the send finished")

// beginScript claims the sending state unless another instance holds it.
var beginScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') == 'sending' then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'status', 'sending', 'message', '', 'updated_at', ARGV[1], 'claim', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// finishScript records the outcome only while the caller's claim is current.
var finishScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'sending' or redis.call('HGET', KEYS[1], 'claim') ~= ARGV[5] then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'message', ARGV[2], 'updated_at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// RedisBoard shares send status across API instances. Terminal entries carry
// their display window as key TTL, so expiry is the reset.
//
// Each Begin stores a claim token; Succeed and Fail write only when the hash
// still holds that token.
type RedisBoard struct {
	rdb *redis.Client
	now func() time.Time

	mu     sync.Mutex
	claims map[uuid.UUID]string
}

func NewRedisBoard(rdb *redis.Client) *RedisBoard {
	return &RedisBoard{rdb: rdb, now: time.Now, claims: make(map[uuid.UUID]string)}
}

func redisKey(orderID uuid.UUID) string { return redisKeyPrefix + orderID.String() }

func (b *RedisBoard) Begin(ctx context.Context, orderID uuid.UUID) error {
	token := uuid.NewString()
	claimed, err := beginScript.Run(ctx, b.rdb,
		[]string{redisKey(orderID)},
		b.now().UTC().Format(time.RFC3339Nano),
		SendingTTL.Milliseconds(),
		token,
	).Int()
	if err != nil {
		return fmt.Errorf("delivery: redis begin: %w", err)
	}
	if claimed == 0 {
		return ErrSendInProgress
	}

	b.mu.Lock()
	b.claims[orderID] = token
	b.mu.Unlock()
	return nil
}

func (b *RedisBoard) Succeed(ctx context.Context, orderID uuid.UUID) error {
	return b.finish(ctx, orderID, StatusSuccess, "", SuccessWindow)
}

func (b *RedisBoard) Fail(ctx context.Context, orderID uuid.UUID, message string) error {
	return b.finish(ctx, orderID, StatusError, message, ErrorWindow)
}

func (b *RedisBoard) finish(ctx context.Context, orderID uuid.UUID, status Status, message string, window time.Duration) error {
	b.mu.Lock()
	token, ok := b.claims[orderID]
	delete(b.claims, orderID)
	b.mu.Unlock()
	if !ok {
		return ErrClaimLost
	}

	written, err := finishScript.Run(ctx, b.rdb,
		[]string{redisKey(orderID)},
		string(status),
		message,
		b.now().UTC().Format(time.RFC3339Nano),
		window.Milliseconds(),
		token,
	).Int()
	if err != nil {
		return fmt.Errorf("delivery: redis %s: %w", status, err)
	}
	if written == 0 {
		return ErrClaimLost
	}
	return nil
}

func (b *RedisBoard) Get(ctx context.Context, orderID uuid.UUID) (Entry, bool, error) {
	fields, err := b.rdb.HGetAll(ctx, redisKey(orderID)).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("delivery: redis get: %w", err)
	}
	if len(fields) == 0 {
		return Entry{}, false, nil
	}
	return entryFromHash(orderID, fields), true, nil
}

func (b *RedisBoard) Snapshot(ctx context.Context) ([]Entry, error) {
	out := []Entry{}

	iter := b.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id, err := uuid.Parse(strings.TrimPrefix(iter.Val(), redisKeyPrefix))
		if err != nil {
			continue
		}
		e, ok, err := b.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("delivery: redis scan: %w", err)
	}

	sortEntries(out)
	return out, nil
}

func entryFromHash(orderID uuid.UUID, fields map[string]string) Entry {
	updated, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])
	return Entry{
		OrderID:   orderID,
		Status:    Status(fields["status"]),
		Message:   fields["message"],
		UpdatedAt: updated,
	}
}
