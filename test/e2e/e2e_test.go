//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admissions-engine/internal/admissions/identifier"
	"admissions-engine/internal/admissions/intake"
	"admissions-engine/internal/admissions/lookup"
	"admissions-engine/internal/admissions/repository"
	"admissions-engine/internal/admissions/status"
	"admissions-engine/internal/admissions/subjects"
	"admissions-engine/internal/common/config"
	"admissions-engine/internal/common/database"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"

	ia "admissions-engine/internal/workers/admissions/index-application"
	rim "admissions-engine/internal/workers/admissions/record-interview-marks"
	uas "admissions-engine/internal/workers/admissions/update-application-status"
)

// ==========================
// 1. Service connectivity
// ==========================

type stack struct {
	pg  *database.PostgresClient
	rdb *database.RedisClient
	es  *database.ElasticsearchClient
}

func connect(t *testing.T) (*config.Config, *stack) {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)

	// Force localhost for docker-compose runs.
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := database.NewPostgres(ctx, cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	t.Cleanup(func() { pg.Close() })
	require.NoError(t, pg.Migrate(ctx), "migrations failed")

	rdb := database.NewRedis(cfg.Database.Redis)
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(ctx), "Redis ping failed")

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)
	require.NoError(t, es.Ping(ctx), "Elasticsearch ping failed")
	require.NoError(t, es.EnsureIndex(ctx))

	return cfg, &stack{pg: pg, rdb: rdb, es: es}
}

// ==========================
// 2. Application lifecycle
// ==========================

func TestAdmissionLifecycle(t *testing.T) {
	cfg, s := connect(t)
	log := logger.NewTestLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := repository.New(s.pg.DB)
	intakeSvc := intake.NewService(repo, identifier.New(cfg.Admissions.NumberPrefix), log)
	lookupSvc := lookup.NewService(repo, log,
		lookup.WithYearCache(lookup.NewRedisYearCache(s.rdb.Client, time.Minute, log)))
	machine := status.NewMachine(repo, log)
	syncer := subjects.NewSynchronizer(repo, log)

	// Submit
	number, err := intakeSvc.Submit(ctx, models.PoolSeniorEntry, models.Application{
		FullName:    "Asha Pillai",
		DateOfBirth: "2010-04-12",
		Mobile:      "+91 98470-12345",
		Address:     models.Address{District: "Kottayam", PinCode: "686001"},
		SeniorEntryDetails: &models.SeniorEntryDetails{
			Stream:          "science",
			QualifyingBoard: "CBSE",
		},
	})
	require.NoError(t, err)
	t.Logf("submitted %s", number)

	// Track with a differently formatted mobile
	res, err := lookupSvc.Resolve(ctx, number, "9847012345")
	require.NoError(t, err)
	assert.Equal(t, models.PoolSeniorEntry, res.Pool)
	assert.Equal(t, models.StatusSubmitted, res.Application.Status)
	ref := models.ApplicationRef{Pool: models.PoolSeniorEntry, ID: res.Application.ID}

	_, err = lookupSvc.Resolve(ctx, number, "9000000000")
	assert.Error(t, err, "mismatched mobile must not resolve")

	// Shortlist through the worker
	shortlist := uas.NewHandler(uas.LoadConfig(), machine, log)
	out, err := shortlist.Execute(ctx, &uas.Input{
		ApplicationID: ref.ID,
		Pool:          string(ref.Pool),
		Status:        string(models.StatusShortlistedForInterview),
		InterviewDate: "2026-11-02",
		InterviewTime: "10:30",
	})
	require.NoError(t, err)
	assert.Equal(t, number, out.ApplicationNumber)

	// Templates and marks
	_, err = syncer.ReplaceTemplates(ctx, models.PoolSeniorEntry, []subjects.TemplateInput{
		{SubjectName: "Mathematics", MaxMarks: 50},
		{SubjectName: "Physics", MaxMarks: 50},
	})
	require.NoError(t, err)

	marks := rim.NewHandler(rim.LoadConfig(), syncer, repo, log)
	scored, err := marks.Execute(ctx, &rim.Input{
		ApplicationID: ref.ID,
		Pool:          string(ref.Pool),
		Marks: []subjects.MarkEntry{
			{SubjectName: "Mathematics", MarksObtained: 42},
			{SubjectName: "Physics", MarksObtained: 35},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 77, scored.Scores.Total.Percentage)

	res, err = lookupSvc.Resolve(ctx, number, "98470 12345")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShortlistedForInterview, res.Application.Status)
	assert.Len(t, res.InterviewMarks, 2)

	// Index for staff search
	indexer := ia.NewHandler(&ia.Config{Index: s.es.Index, Timeout: 10 * time.Second}, repo, s.es.Client, log)
	indexed, err := indexer.Execute(ctx, &ia.Input{ApplicationID: ref.ID, Pool: string(ref.Pool)})
	require.NoError(t, err)
	assert.Equal(t, ia.DocumentID(ref.Pool, number), indexed.DocumentID)
}

func TestTrackUnknownNumber(t *testing.T) {
	_, s := connect(t)
	log := logger.NewTestLogger(t)

	svc := lookup.NewService(repository.New(s.pg.DB), log)
	_, err := svc.Resolve(context.Background(), "ADM-1999-0000", "9847012345")

	assert.Error(t, err)
}
