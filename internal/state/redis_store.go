package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys use a hash tag on the pin so that all keys of one session land in
// the same cluster slot and can be touched by a single script.
func mainKey(pin string) string {
	return fmt.Sprintf("game:{%s}", pin)
}

func subKey(pin, subkey string) string {
	return fmt.Sprintf("game:{%s}:%s", pin, subkey)
}

var setScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
for i = 2, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('EXPIRE', KEYS[1], ARGV[1])
return 1
`)

var hashSetScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
for i = 2, #ARGV, 2 do
  redis.call('HSET', KEYS[2], ARGV[i], ARGV[i + 1])
end
redis.call('EXPIRE', KEYS[2], ARGV[1])
return 1
`)

// ARGV: field, delta, expect ('' for none), ttl, n require pairs, require
// pairs..., set pairs...
// Returns {status, value}: 0 missing, 1 ok, 2 precondition, 3 conflict.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {0, 0} end
local n = tonumber(ARGV[5])
local i = 6
for _ = 1, n do
  if redis.call('HGET', KEYS[1], ARGV[i]) ~= ARGV[i + 1] then return {2, 0} end
  i = i + 2
end
local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if ARGV[3] ~= '' and cur ~= tonumber(ARGV[3]) then return {3, cur} end
local v = redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
while i < #ARGV do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
  i = i + 2
end
redis.call('EXPIRE', KEYS[1], ARGV[4])
return {1, v}
`)

// KEYS: main, claim hash, counter hash. ARGV: field, claim value, delta, ttl.
// Returns {status, total}: 0 missing, 1 already claimed, 2 claimed now.
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {0, 0} end
local claimed = redis.call('HSETNX', KEYS[2], ARGV[1], ARGV[2])
redis.call('EXPIRE', KEYS[2], ARGV[4])
if claimed == 1 and tonumber(ARGV[3]) ~= 0 then
  redis.call('HINCRBY', KEYS[3], ARGV[1], ARGV[3])
  redis.call('EXPIRE', KEYS[3], ARGV[4])
end
local total = tonumber(redis.call('HGET', KEYS[3], ARGV[1]) or '0')
return {1 + claimed, total}
`)

// RedisStore implements Store on a Redis hash per session plus one hash
// per subkey.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) ttlSeconds() string {
	sec := int64(s.ttl / time.Second)
	if sec < 1 {
		sec = 1
	}
	return strconv.FormatInt(sec, 10)
}

func pairs(fields map[string]string) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func (s *RedisStore) Create(ctx context.Context, pin string, fields map[string]string) error {
	key := mainKey(pin)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, pairs(fields)...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, pin, field string) (string, error) {
	var exists *redis.IntCmd
	var get *redis.StringCmd
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.Exists(ctx, mainKey(pin))
		get = pipe.HGet(ctx, mainKey(pin), field)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	if exists.Val() == 0 {
		return "", ErrNotFound
	}
	return get.Val(), nil
}

func (s *RedisStore) GetAll(ctx context.Context, pin string) (map[string]string, error) {
	fields, err := s.rdb.HGetAll(ctx, mainKey(pin)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return fields, nil
}

func (s *RedisStore) Set(ctx context.Context, pin string, fields map[string]string) error {
	args := append([]interface{}{s.ttlSeconds()}, pairs(fields)...)
	ok, err := setScript.Run(ctx, s.rdb, []string{mainKey(pin)}, args...).Int64()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Increment(ctx context.Context, pin, field string, delta int64) (int64, error) {
	return s.IncrementIf(ctx, pin, field, delta, Cond{})
}

func (s *RedisStore) IncrementIf(ctx context.Context, pin, field string, delta int64, cond Cond) (int64, error) {
	expect := ""
	if cond.Expect != nil {
		expect = strconv.FormatInt(*cond.Expect, 10)
	}
	args := []interface{}{field, delta, expect, s.ttlSeconds(), len(cond.Require)}
	args = append(args, pairs(cond.Require)...)
	args = append(args, pairs(cond.Set)...)

	res, err := incrementScript.Run(ctx, s.rdb, []string{mainKey(pin)}, args...).Int64Slice()
	if err != nil {
		return 0, err
	}
	switch res[0] {
	case 0:
		return 0, ErrNotFound
	case 2:
		return 0, ErrPrecondition
	case 3:
		return res[1], ErrConflict
	}
	return res[1], nil
}

func (s *RedisStore) HashSet(ctx context.Context, pin, subkey string, fields map[string]string) error {
	args := append([]interface{}{s.ttlSeconds()}, pairs(fields)...)
	ok, err := hashSetScript.Run(ctx, s.rdb, []string{mainKey(pin), subKey(pin, subkey)}, args...).Int64()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) HashDelete(ctx context.Context, pin, subkey string, fields ...string) error {
	var exists *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.Exists(ctx, mainKey(pin))
		pipe.HDel(ctx, subKey(pin, subkey), fields...)
		return nil
	})
	if err != nil {
		return err
	}
	if exists.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) HashGet(ctx context.Context, pin, subkey, field string) (string, bool, error) {
	var exists *redis.IntCmd
	var get *redis.StringCmd
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.Exists(ctx, mainKey(pin))
		get = pipe.HGet(ctx, subKey(pin, subkey), field)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", false, err
	}
	if exists.Val() == 0 {
		return "", false, ErrNotFound
	}
	if errors.Is(get.Err(), redis.Nil) {
		return "", false, nil
	}
	return get.Val(), true, nil
}

func (s *RedisStore) HashGetAll(ctx context.Context, pin, subkey string) (map[string]string, error) {
	all, err := s.HashGetAllMany(ctx, pin, subkey)
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

// HashGetAllMany reads several subkeys in one pipeline. Each hash is read
// consistently; the set of hashes is not a single snapshot.
func (s *RedisStore) HashGetAllMany(ctx context.Context, pin string, subkeys ...string) ([]map[string]string, error) {
	var exists *redis.IntCmd
	cmds := make([]*redis.MapStringStringCmd, len(subkeys))
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.Exists(ctx, mainKey(pin))
		for i, sk := range subkeys {
			cmds[i] = pipe.HGetAll(ctx, subKey(pin, sk))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if exists.Val() == 0 {
		return nil, ErrNotFound
	}
	out := make([]map[string]string, len(cmds))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

func (s *RedisStore) ClaimAndIncrement(ctx context.Context, pin, claimSubkey, field, claimValue, counterSubkey string, delta int64) (bool, int64, error) {
	keys := []string{mainKey(pin), subKey(pin, claimSubkey), subKey(pin, counterSubkey)}
	res, err := claimScript.Run(ctx, s.rdb, keys, field, claimValue, delta, s.ttlSeconds()).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if res[0] == 0 {
		return false, 0, ErrNotFound
	}
	return res[0] == 2, res[1], nil
}
