package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"admissions-engine/internal/admissions/lookup"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	processID string
	vars      interface{}
	err       error
}

func (f *fakeStarter) StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error) {
	f.processID = processID
	f.vars = variables
	return 2251799813685249, f.err
}

func TestStartIntakeProcess(t *testing.T) {
	starter := &fakeStarter{}
	hook := startIntakeProcess(starter, "admission-intake", logger.NewTestLogger(t))

	hook(context.Background(), &models.Application{
		ID:                "8d6f0a52-0c0e-4e44-9c55-3f6f0f6c1a10",
		ApplicationNumber: "ADM-2026-5310",
		Pool:              models.PoolSeniorEntry,
		FullName:          "Asha Pillai",
		Mobile:            "9847012345",
		Status:            models.StatusSubmitted,
	})

	assert.Equal(t, "admission-intake", starter.processID)
	vars, ok := starter.vars.(intakeVariables)
	require.True(t, ok)
	assert.Equal(t, "ADM-2026-5310", vars.ApplicationNumber)
	assert.Equal(t, string(models.PoolSeniorEntry), vars.Pool)
	assert.Equal(t, "submitted", vars.Status)
}

func TestStartIntakeProcess_FailureIsSwallowed(t *testing.T) {
	starter := &fakeStarter{err: errors.New("gateway unavailable")}
	hook := startIntakeProcess(starter, "admission-intake", logger.NewTestLogger(t))

	assert.NotPanics(t, func() {
		hook(context.Background(), &models.Application{ApplicationNumber: "ADM-2026-0001"})
	})
}

func TestDropCachedYears(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := lookup.NewRedisYearCache(client, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	for _, pool := range models.Pools {
		cache.Set(ctx, &models.AcademicYear{Pool: pool, Label: "2025-26", IsCurrent: true})
	}
	require.Len(t, mr.Keys(), len(models.Pools))

	dropCachedYears(ctx, cache, logger.NewTestLogger(t))

	assert.Empty(t, mr.Keys())
	for _, pool := range models.Pools {
		_, ok := cache.Get(ctx, pool)
		assert.False(t, ok)
	}
}

type failingInvalidator struct {
	calls []models.Pool
}

func (f *failingInvalidator) Invalidate(ctx context.Context, pool models.Pool) error {
	f.calls = append(f.calls, pool)
	return errors.New("connection refused")
}

func TestDropCachedYears_ErrorsDoNotStopStartup(t *testing.T) {
	inv := &failingInvalidator{}

	assert.NotPanics(t, func() {
		dropCachedYears(context.Background(), inv, logger.NewTestLogger(t))
	})
	assert.Equal(t, models.Pools, inv.calls)
}
