package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emilythestrangee/commpolls/backend/internal/config"
	"github.com/emilythestrangee/commpolls/backend/internal/database"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
)

const TestJWTSecret = "test-secret-0123456789abcdef"

// Config returns a configuration backed by a private in-memory SQLite database.
func Config(t *testing.T) config.Config {
	t.Helper()

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	return config.Config{
		Port:      "8080",
		Env:       "test",
		LogLevel:  "error",
		DBDriver:  config.DriverSQLite,
		DBPath:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite", name),
		JWTSecret: TestJWTSecret,
		TokenTTL:  time.Hour,
	}
}

// SetupTestDB opens a fresh migrated database that is closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openDB(t, Config(t))
}

// SetupPostgresDB starts a disposable Postgres container. The test is skipped with
// -short or when no container runtime is reachable.
func SetupPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("commpolls"),
		tcpostgres.WithUsername("commpolls"),
		tcpostgres.WithPassword("commpolls"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := Config(t)
	cfg.DBDriver = config.DriverPgx
	cfg.DBHost = host
	cfg.DBPort = port.Port()
	cfg.DBUser = "commpolls"
	cfg.DBPassword = "commpolls"
	cfg.DBName = "commpolls"
	cfg.DBSSLMode = "disable"
	cfg.DBPath = ""

	return openDB(t, cfg)
}

func openDB(t *testing.T, cfg config.Config) *gorm.DB {
	t.Helper()

	svc, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return svc.GetDB()
}

// CreateTestUser inserts a user with a profile. Password is "password123".
func CreateTestUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: user.ID}).Error)

	return user
}

// CreateTestPoll inserts a poll window with the named choices directly, bypassing validation.
func CreateTestPoll(t *testing.T, db *gorm.DB, creator *models.User, start, end time.Time, choices ...string) *models.Poll {
	t.Helper()

	poll := &models.Poll{
		Name:        "Test Poll",
		Description: "A test poll",
		CreatedByID: creator.ID,
		StartDate:   start.UTC(),
		EndDate:     end.UTC(),
	}
	for _, name := range choices {
		poll.Choices = append(poll.Choices, models.Choice{Name: name})
	}
	require.NoError(t, db.Create(poll).Error)

	return poll
}

// ActivePoll is CreateTestPoll with a window of now-1h to now+1h.
func ActivePoll(t *testing.T, db *gorm.DB, creator *models.User, choices ...string) *models.Poll {
	t.Helper()
	now := time.Now()
	return CreateTestPoll(t, db, creator, now.Add(-time.Hour), now.Add(time.Hour), choices...)
}

// CountVotes returns the number of vote rows for a poll.
func CountVotes(t *testing.T, db *gorm.DB, pollID int) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Vote{}).Where("poll_id = ?", pollID).Count(&n).Error)
	return n
}

// SumVotesCount returns the sum of the per-choice counters for a poll.
func SumVotesCount(t *testing.T, db *gorm.DB, pollID int) int64 {
	t.Helper()
	var sum int64
	require.NoError(t, db.Model(&models.Choice{}).
		Where("poll_id = ?", pollID).
		Select("COALESCE(SUM(votes_count), 0)").
		Scan(&sum).Error)
	return sum
}
