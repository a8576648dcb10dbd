package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HollandReese/bulwark/internal/models"
)

func TestLoginActivityRepository_RecordAndCount(t *testing.T) {
	db := requireDB(t)
	_, _, activity := InitializeRepositories(db.DB)
	ctx := context.Background()

	reason := "invalid_credentials"
	for i := 0; i < 3; i++ {
		require.NoError(t, activity.Record(ctx, &models.LoginActivity{
			IPAddress:     "192.0.2.1",
			Identifier:    "user@example.com",
			Success:       false,
			FailureReason: &reason,
			UserAgent:     "test-agent",
		}))
	}
	require.NoError(t, activity.Record(ctx, &models.LoginActivity{
		IPAddress:  "192.0.2.1",
		Identifier: "user@example.com",
		Success:    true,
		UserAgent:  "test-agent",
	}))

	count, err := activity.CountFailuresSince(ctx, "192.0.2.1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, count, "successes are not counted")

	count, err = activity.CountFailuresSince(ctx, "192.0.2.2", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLoginActivityRepository_CountFailuresSinceRespectsWindow(t *testing.T) {
	db := requireDB(t)
	_, _, activity := InitializeRepositories(db.DB)
	ctx := context.Background()

	require.NoError(t, SeedLoginFailures(ctx, db.Pool, "192.0.2.1", "user@example.com", 4, time.Now().Add(-20*time.Minute)))
	require.NoError(t, SeedLoginFailures(ctx, db.Pool, "192.0.2.1", "user@example.com", 2, time.Now()))

	count, err := activity.CountFailuresSince(ctx, "192.0.2.1", time.Now().Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLoginActivityRepository_LastSuccessTime(t *testing.T) {
	db := requireDB(t)
	_, _, activity := InitializeRepositories(db.DB)
	ctx := context.Background()

	last, err := activity.LastSuccessTime(ctx, "192.0.2.1")
	require.NoError(t, err)
	assert.Nil(t, last, "no success yet")

	require.NoError(t, activity.Record(ctx, &models.LoginActivity{
		IPAddress:  "192.0.2.1",
		Identifier: "user@example.com",
		Success:    true,
		UserAgent:  "test-agent",
	}))

	last, err = activity.LastSuccessTime(ctx, "192.0.2.1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, time.Now(), *last, 5*time.Second)
}

func TestLoginActivityRepository_DeleteOlderThan(t *testing.T) {
	db := requireDB(t)
	_, _, activity := InitializeRepositories(db.DB)
	ctx := context.Background()

	require.NoError(t, SeedLoginFailures(ctx, db.Pool, "192.0.2.1", "user@example.com", 5, time.Now().Add(-48*time.Hour)))
	require.NoError(t, SeedLoginFailures(ctx, db.Pool, "192.0.2.1", "user@example.com", 2, time.Now()))

	deleted, err := activity.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)

	count, err := activity.CountFailuresSince(ctx, "192.0.2.1", time.Now().Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
