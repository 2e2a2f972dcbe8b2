// Package session keeps dashboard sessions and their wizard state in redis.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/releasedesk/backend/internal/config"
	"github.com/releasedesk/backend/internal/models"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrBusy     = errors.New("session is busy with another request")
)

// Store persists sessions, per-session wizard state and the token blacklist
type Store interface {
	Save(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	SaveState(ctx context.Context, id, kind string, state interface{}) error
	LoadState(ctx context.Context, id, kind string, state interface{}) (bool, error)
	DeleteState(ctx context.Context, id, kind string) error
	Lock(ctx context.Context, id string) (unlock func(), err error)
	Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// RedisStore is the Store used in production
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewRedisStore(client *redis.Client, cfg *config.Config) *RedisStore {
	return &RedisStore{client: client, ttl: cfg.SessionTTL, lockTTL: cfg.SessionLockTTL}
}

// unlockScript deletes the lock only if it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// refreshScript extends the lock only if it still holds our token
var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

func sessionKey(id string) string        { return fmt.Sprintf("session:%s", id) }
func stateKey(id, kind string) string    { return fmt.Sprintf("session:%s:state:%s", id, kind) }
func lockKey(id string) string           { return fmt.Sprintf("session:%s:lock", id) }
func blacklistKey(tokenID string) string { return fmt.Sprintf("blacklist:session:%s", tokenID) }

func (s *RedisStore) Save(ctx context.Context, sess *models.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	return errors.Wrap(s.client.Set(ctx, sessionKey(sess.ID), b, s.ttl).Err(), "save session")
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	b, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	var sess models.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &sess, nil
}

// Delete removes the session and all of its wizard state
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	keys := []string{sessionKey(id)}
	iter := s.client.Scan(ctx, 0, fmt.Sprintf("session:%s:state:*", id), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scan session state")
	}
	return errors.Wrap(s.client.Del(ctx, keys...).Err(), "delete session")
}

func (s *RedisStore) SaveState(ctx context.Context, id, kind string, state interface{}) error {
	b, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "encode %s state", kind)
	}
	return errors.Wrapf(s.client.Set(ctx, stateKey(id, kind), b, s.ttl).Err(), "save %s state", kind)
}

// LoadState decodes saved state into state and reports whether any was found
func (s *RedisStore) LoadState(ctx context.Context, id, kind string, state interface{}) (bool, error) {
	b, err := s.client.Get(ctx, stateKey(id, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "load %s state", kind)
	}
	if err := json.Unmarshal(b, state); err != nil {
		return false, errors.Wrapf(err, "decode %s state", kind)
	}
	return true, nil
}

func (s *RedisStore) DeleteState(ctx context.Context, id, kind string) error {
	return errors.Wrapf(s.client.Del(ctx, stateKey(id, kind)).Err(), "delete %s state", kind)
}

// Lock takes the per-session lock. It fails fast with ErrBusy instead of waiting.
// The lock is refreshed while held, so a request that outlives lockTTL keeps it.
func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	token := uuid.New().String()
	key := lockKey(id)
	ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, errors.Wrap(err, "acquire session lock")
	}
	if !ok {
		return nil, ErrBusy
	}
	stop := renewEvery(s.lockTTL/3, func(ctx context.Context) (bool, error) {
		n, err := refreshScript.Run(ctx, s.client, []string{key}, token, s.lockTTL.Milliseconds()).Int()
		return n == 1, err
	})
	return func() {
		stop()
		_ = unlockScript.Run(context.Background(), s.client, []string{key}, token).Err()
	}, nil
}

// renewEvery calls renew every interval until stop is called or renew reports
// that the lock is no longer ours. stop waits for the renewer to exit.
func renewEvery(interval time.Duration, renew func(ctx context.Context) (bool, error)) (stop func()) {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				held, err := renew(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.WithError(err).Warn("could not refresh session lock")
					}
					continue
				}
				if !held {
					log.Warn("session lock lost before release")
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *RedisStore) Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(s.client.Set(ctx, blacklistKey(tokenID), "1", ttl).Err(), "blacklist token")
}

func (s *RedisStore) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "check blacklist")
	}
	return n > 0, nil
}
