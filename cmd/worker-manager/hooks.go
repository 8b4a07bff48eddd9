package main

import (
	"context"

	"admissions-engine/internal/admissions/intake"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"
)

// ProcessStarter creates a BPMN process instance.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

type intakeVariables struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationNumber string `json:"applicationNumber"`
	Pool              string `json:"pool"`
	FullName          string `json:"fullName"`
	Mobile            string `json:"mobile"`
	Email             string `json:"email,omitempty"`
	Status            string `json:"status"`
}

// startIntakeProcess returns a hook that starts processID for every stored
// application. The application is already committed, so a failure here is
// logged and the submission still succeeds.
func startIntakeProcess(starter ProcessStarter, processID string, log logger.Logger) intake.SubmittedHook {
	l := logger.Component(log, "intake-process")
	return func(ctx context.Context, app *models.Application) {
		vars := intakeVariables{
			ApplicationID:     app.ID,
			ApplicationNumber: app.ApplicationNumber,
			Pool:              string(app.Pool),
			FullName:          app.FullName,
			Mobile:            app.Mobile,
			Email:             app.Email,
			Status:            string(app.Status),
		}
		key, err := starter.StartProcess(ctx, processID, vars)
		if err != nil {
			l.Error("Failed to start intake process", map[string]interface{}{
				"processId":         processID,
				"applicationNumber": app.ApplicationNumber,
				"error":             err,
			})
			return
		}
		l.Info("Intake process started", map[string]interface{}{
			"processId":          processID,
			"processInstanceKey": key,
			"applicationNumber":  app.ApplicationNumber,
		})
	}
}

// YearCacheInvalidator drops a pool's cached academic year.
type YearCacheInvalidator interface {
	Invalidate(ctx context.Context, pool models.Pool) error
}

// dropCachedYears clears cached academic years at startup. Years are edited
// outside the engine, and a restart should not serve the old one until the
// TTL runs out.
func dropCachedYears(ctx context.Context, cache YearCacheInvalidator, log logger.Logger) {
	for _, pool := range models.Pools {
		if err := cache.Invalidate(ctx, pool); err != nil {
			log.Warn("Failed to drop cached academic year", map[string]interface{}{
				"pool":  pool,
				"error": err,
			})
		}
	}
}
