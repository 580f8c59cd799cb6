package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"live-quiz-backend/internal/database"
	"live-quiz-backend/internal/state"
)

// StateTTL is the session TTL used by test stores.
const StateTTL = 24 * time.Hour

// NewTestDB creates an in-memory sqlite catalog with all models migrated.
// Each test gets its own database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// NewTestRedis starts a miniredis server and returns it with a client
// pointed at it. Both are closed when the test ends.
func NewTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// NewTestStore returns a RedisStore backed by miniredis.
func NewTestStore(t *testing.T) (*miniredis.Miniredis, *state.RedisStore) {
	t.Helper()

	mr, rdb := NewTestRedis(t)
	return mr, state.NewRedisStore(rdb, StateTTL)
}
