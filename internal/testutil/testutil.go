// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	authdomain "projectflow-backend/internal/auth/domain"
	"projectflow-backend/internal/migrate"
	"projectflow-backend/internal/realtime"
	"projectflow-backend/pkg/config"
	"projectflow-backend/pkg/database"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// JWTSecret signs tokens in tests.
const JWTSecret = "test-secret"

// Config returns a configuration for an in-memory SQLite store.
func Config() *config.Config {
	return &config.Config{
		Port:               "0",
		DBDriver:           database.DriverSQLite,
		JWTSecret:          JWTSecret,
		RedisChannelPrefix: "board",
		ReminderInterval:   time.Minute,
		ReminderLead:       24 * time.Hour,
		LogLevel:           "error",
	}
}

// NewTestDB opens a private in-memory database with the schema applied.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection(Config())
	require.NoError(t, err)
	require.NoError(t, migrate.Run(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedProfile inserts a profile so names resolve in listings.
func SeedProfile(t testing.TB, db *gorm.DB, id, name string) *authdomain.Profile {
	t.Helper()
	p := &authdomain.Profile{ID: id, Email: id + "@example.com", FullName: &name}
	require.NoError(t, db.Create(p).Error)
	return p
}

// SignToken returns an HS256 token for userID signed with JWTSecret.
// Extra claims override the defaults.
func SignToken(t testing.TB, userID string, extra jwt.MapClaims) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": userID + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	require.NoError(t, err)
	return token
}

// Recorder is a realtime.Publisher that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []realtime.Event

	// Err is returned from Publish after the event is recorded.
	Err error
}

func (r *Recorder) Publish(_ context.Context, event realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// FailNthUpdate makes the nth UPDATE statement issued through db fail with
// err. Counting starts when it is called; the returned func removes the hook.
func FailNthUpdate(t testing.TB, db *gorm.DB, n int, err error) func() {
	t.Helper()
	var (
		mu    sync.Mutex
		count int
	)
	name := "testutil:fail_nth_update"
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		mu.Lock()
		defer mu.Unlock()
		count++
		if count == n {
			tx.AddError(err)
		}
	}))
	return func() {
		_ = db.Callback().Update().Remove(name)
	}
}
