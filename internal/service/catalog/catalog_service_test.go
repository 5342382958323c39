package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/database"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Init(config.CatalogConfig{DSN: ":memory:"})
	require.NoError(t, err)
	return db
}

func TestCatalogRunLifecycle(t *testing.T) {
	svc := NewCatalogService(setupTestDB(t))

	run, err := svc.StartRun("appBase", "airtable_backup")
	require.NoError(t, err)
	assert.Len(t, run.RunID, 36)
	assert.Equal(t, database.StatusRunning, run.Status)

	require.NoError(t, svc.RecordTable(&database.TableSnapshot{
		RunID: run.RunID, Table: "Clients", RecordCount: 2, AttachmentCount: 1,
		CSVPath: "airtable_backup/Clients.csv", Status: database.StatusSuccess,
	}))
	require.NoError(t, svc.RecordAttachment(&database.AttachmentFile{
		RunID: run.RunID, Table: "Clients", Field: "Logo", RecordID: "rec1",
		URL: "http://x/a.png", LocalPath: "airtable_backup/Clients.Logo/acme/a.png", FileSize: 3,
	}))
	require.NoError(t, svc.FinishRun(run.RunID, 1, nil))

	runs, err := svc.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, database.StatusSuccess, runs[0].Status)
	assert.Equal(t, 1, runs[0].TableCount)
	assert.NotNil(t, runs[0].FinishedAt)

	tables, err := svc.GetRunTables(run.RunID)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "Clients", tables[0].Table)

	files, err := svc.GetRunAttachments(run.RunID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Logo", files[0].Field)
}

func TestCatalogFinishRunWithError(t *testing.T) {
	svc := NewCatalogService(setupTestDB(t))

	run, err := svc.StartRun("appBase", "out")
	require.NoError(t, err)
	require.NoError(t, svc.FinishRun(run.RunID, 0, fmt.Errorf("boom")))

	runs, err := svc.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, database.StatusFailed, runs[0].Status)
	assert.Equal(t, "boom", runs[0].ErrorMsg)
}

func TestCatalogFinishUnknownRun(t *testing.T) {
	svc := NewCatalogService(setupTestDB(t))
	assert.Error(t, svc.FinishRun("no-such-run", 0, nil))
}

func TestCatalogListRunsLimit(t *testing.T) {
	svc := NewCatalogService(setupTestDB(t))
	for i := 0; i < 3; i++ {
		_, err := svc.StartRun("appBase", "out")
		require.NoError(t, err)
	}

	runs, err := svc.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestNopCatalog(t *testing.T) {
	svc := NewNopCatalogService()

	run, err := svc.StartRun("appBase", "out")
	require.NoError(t, err)
	assert.NotEmpty(t, run.RunID)
	assert.NoError(t, svc.RecordTable(&database.TableSnapshot{}))
	assert.NoError(t, svc.FinishRun(run.RunID, 0, nil))

	runs, err := svc.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
