// Package redisstore implements store.Store on Redis hashes.
//
// Each user lives in a hash at "<prefix>:u:<id>" and is indexed by a string key
// at "<prefix>:e:<email>". Create, SetSession, and Revoke run as Lua scripts so
// the uniqueness check and the compare-and-set happen inside one Redis command.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps every Redis transport or protocol failure.
var ErrUnavailable = errors.New("redis unavailable")

// ErrCorruptRecord is returned when a stored hash cannot be decoded.
var ErrCorruptRecord = errors.New("redis user record corrupt")

// DefaultPrefix is used when New is given an empty prefix.
const DefaultPrefix = "gs"

const (
	fieldID           = "id"
	fieldEmail        = "email"
	fieldFirstName    = "firstName"
	fieldLastName     = "lastName"
	fieldPasswordHash = "passwordHash"
	fieldRefreshHash  = "refreshTokenHash"
	fieldTokenVersion = "tokenVersion"
	fieldIsActive     = "isActive"
	fieldCreatedAt    = "createdAt"
	fieldUpdatedAt    = "updatedAt"
)

const (
	statusNotFound int64 = 0
	statusConflict int64 = 1
	statusApplied  int64 = 2
)

const createUserScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[2],
  "id", ARGV[1],
  "email", ARGV[2],
  "firstName", ARGV[3],
  "lastName", ARGV[4],
  "passwordHash", ARGV[5],
  "refreshTokenHash", "",
  "tokenVersion", "0",
  "isActive", "1",
  "createdAt", ARGV[6],
  "updatedAt", ARGV[6])
redis.call("SET", KEYS[1], ARGV[1])
return 1
`

var createUserLua = redis.NewScript(createUserScript)

const setSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {0}
end
local current = tonumber(redis.call("HGET", KEYS[1], "tokenVersion") or "0")
if current ~= tonumber(ARGV[1]) then
  return {1}
end
redis.call("HSET", KEYS[1],
  "refreshTokenHash", ARGV[2],
  "tokenVersion", ARGV[3],
  "updatedAt", ARGV[4])
return {2, redis.call("HGETALL", KEYS[1])}
`

var setSessionLua = redis.NewScript(setSessionScript)

const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {0}
end
redis.call("HINCRBY", KEYS[1], "tokenVersion", 1)
redis.call("HSET", KEYS[1], "refreshTokenHash", "", "updatedAt", ARGV[1])
return {2, redis.call("HGETALL", KEYS[1])}
`

var revokeLua = redis.NewScript(revokeScript)

var _ store.Store = (*Store)(nil)

// Store is a Redis-backed user store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New creates a Store on client. prefix namespaces every key.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: client, prefix: prefix, now: time.Now}
}

func (s *Store) userKey(id string) string {
	return s.prefix + ":u:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":e:" + email
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(store.NormalizeEmail(email))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return s.FindByID(ctx, id)
}

func (s *Store) FindByID(ctx context.Context, id string) (*store.User, error) {
	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}
	return decodeUser(fields)
}

func (s *Store) Create(ctx context.Context, in store.NewUser) (*store.User, error) {
	email := store.NormalizeEmail(in.Email)
	id := uuid.NewString()
	now := s.now().UTC()

	created, err := createUserLua.Run(ctx, s.redis,
		[]string{s.emailKey(email), s.userKey(id)},
		id, email, in.FirstName, in.LastName, in.PasswordHash, formatTime(now),
	).Int64()
	if err != nil {
		return nil, unavailable(err)
	}
	if created == 0 {
		return nil, store.ErrEmailTaken
	}

	return &store.User{
		ID:           id,
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Store) SetSession(ctx context.Context, id string, expectedVersion int64, next store.Session) (*store.User, error) {
	res, err := setSessionLua.Run(ctx, s.redis,
		[]string{s.userKey(id)},
		expectedVersion, next.RefreshTokenHash, next.TokenVersion, formatTime(s.now().UTC()),
	).Slice()
	if err != nil {
		return nil, unavailable(err)
	}
	return scriptResult(res)
}

func (s *Store) Revoke(ctx context.Context, id string) (*store.User, error) {
	res, err := revokeLua.Run(ctx, s.redis,
		[]string{s.userKey(id)},
		formatTime(s.now().UTC()),
	).Slice()
	if err != nil {
		return nil, unavailable(err)
	}
	return scriptResult(res)
}

func scriptResult(res []interface{}) (*store.User, error) {
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: empty script reply", ErrUnavailable)
	}
	status, ok := res[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected status type %T", ErrUnavailable, res[0])
	}

	switch status {
	case statusNotFound:
		return nil, store.ErrNotFound
	case statusConflict:
		return nil, store.ErrVersionConflict
	case statusApplied:
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, status)
	}

	if len(res) < 2 {
		return nil, fmt.Errorf("%w: missing record in script reply", ErrUnavailable)
	}
	flat, ok := res[1].([]interface{})
	if !ok || len(flat)%2 != 0 {
		return nil, ErrCorruptRecord
	}

	fields := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		k, kok := flat[i].(string)
		v, vok := flat[i+1].(string)
		if !kok || !vok {
			return nil, ErrCorruptRecord
		}
		fields[k] = v
	}
	return decodeUser(fields)
}

func decodeUser(fields map[string]string) (*store.User, error) {
	version, err := strconv.ParseInt(fields[fieldTokenVersion], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: token version: %v", ErrCorruptRecord, err)
	}
	createdAt, err := parseTime(fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("%w: createdAt: %v", ErrCorruptRecord, err)
	}
	updatedAt, err := parseTime(fields[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("%w: updatedAt: %v", ErrCorruptRecord, err)
	}

	return &store.User{
		ID:               fields[fieldID],
		Email:            fields[fieldEmail],
		FirstName:        fields[fieldFirstName],
		LastName:         fields[fieldLastName],
		PasswordHash:     fields[fieldPasswordHash],
		RefreshTokenHash: fields[fieldRefreshHash],
		TokenVersion:     version,
		IsActive:         fields[fieldIsActive] == "1",
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// SetActive flips the active flag of an existing user. Deactivated users
// cannot log in.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	flag := "0"
	if active {
		flag = "1"
	}
	n, err := s.redis.Exists(ctx, s.userKey(id)).Result()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	if err := s.redis.HSet(ctx, s.userKey(id), fieldIsActive, flag, fieldUpdatedAt, formatTime(s.now().UTC())).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
