package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout не удалось захватить распределённую блокировку вовремя
var ErrLockTimeout = errors.New("catalog is busy, try again")

// transaction-aware helpers: вложенные WithTransaction не берут блокировку повторно
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// MutexTx сериализует изменения каталога в пределах процесса
type MutexTx struct {
	mu sync.Mutex
}

func NewMutexTx() *MutexTx { return &MutexTx{} }

var _ TxManager = (*MutexTx)(nil)

func (tx *MutexTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisTx блокировка на SET NX PX для нескольких процессов над одним Redis.
// Внутри процесса дополнительно держит MutexTx, чтобы не крутиться на Redis зря.
type RedisTx struct {
	local   MutexTx
	client  *redis.Client
	key     string
	ttl     time.Duration
	retry   time.Duration
	maxWait time.Duration
}

func NewRedisTx(client *redis.Client, key string, ttl time.Duration) *RedisTx {
	return &RedisTx{
		client:  client,
		key:     key,
		ttl:     ttl,
		retry:   50 * time.Millisecond,
		maxWait: 5 * time.Second,
	}
}

var _ TxManager = (*RedisTx)(nil)

func (tx *RedisTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	return tx.local.WithTransaction(ctx, func(ctx context.Context) error {
		token := uuid.NewString()
		if err := tx.acquire(ctx, token); err != nil {
			return err
		}
		// release on a fresh context so a cancelled request still frees the lock
		defer releaseLockScript.Run(context.Background(), tx.client, []string{tx.key}, token)
		return fn(ctx)
	})
}

func (tx *RedisTx) acquire(ctx context.Context, token string) error {
	deadline := time.Now().Add(tx.maxWait)
	for {
		ok, err := tx.client.SetNX(ctx, tx.key, token, tx.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tx.retry):
		}
	}
}
