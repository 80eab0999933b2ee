package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/database/testutil"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
)

func TestNewAuditServiceRequiresDB(t *testing.T) {
	_, err := NewAuditService(nil)
	require.Error(t, err)
}

func TestAuditServiceLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.NewString()
	require.NoError(t, svc.Log(ctx, AuditEntry{
		UserID:     userID,
		Action:     " session.login ",
		Resource:   "session",
		ResourceID: "s-1",
		Result:     "success",
		IPAddress:  "10.0.0.1",
		Metadata:   map[string]any{"risk_level": "low"},
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{
		UserID: uuid.NewString(),
		Action: "session.login",
		Result: "success",
	}))

	logs, err := svc.ListForUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "session.login", logs[0].Action)
	require.NotNil(t, logs[0].UserID)
	require.Equal(t, userID, *logs[0].UserID)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal([]byte(logs[0].Metadata), &metadata))
	require.Equal(t, "low", metadata["risk_level"])
}

func TestAuditServiceLogValidates(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "session.login"}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	old := models.AuditLog{Action: "session.login", Result: "success"}
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -120)
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&models.AuditLog{Action: "session.logout", Result: "success"}).Error)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)

	deleted, err := svc.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&remaining).Error)
	require.EqualValues(t, 1, remaining)
}

func TestRecordAuditDefaultsResult(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	recordAudit(nil, context.Background(), AuditEntry{Action: "ignored"})
	recordAudit(svc, context.Background(), AuditEntry{Action: "user.create"})

	var log models.AuditLog
	require.NoError(t, db.First(&log).Error)
	require.Equal(t, "success", log.Result)
}
