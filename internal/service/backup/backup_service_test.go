package service

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/airtable"
	"github.com/weiwangfds/basebackup/internal/airtable/fakeserver"
	"github.com/weiwangfds/basebackup/internal/database"
	"github.com/weiwangfds/basebackup/internal/errors"
	attachmentservice "github.com/weiwangfds/basebackup/internal/service/attachment"
	catalogservice "github.com/weiwangfds/basebackup/internal/service/catalog"
	exportservice "github.com/weiwangfds/basebackup/internal/service/export"
)

type harness struct {
	srv     *fakeserver.Server
	root    string
	catalog catalogservice.CatalogService
}

func newHarness(t *testing.T) *harness {
	db, err := database.Init(config.CatalogConfig{DSN: ":memory:"})
	require.NoError(t, err)
	return &harness{
		srv:     fakeserver.New(t, "key", "appBase"),
		root:    filepath.Join(t.TempDir(), "airtable_backup"),
		catalog: catalogservice.NewCatalogService(db),
	}
}

func (h *harness) service(policy string) *Service {
	client := airtable.NewClient(config.AirtableConfig{APIKey: "key", BaseID: "appBase", APIURL: h.srv.URL(), PageSize: 100})
	fetcher := attachmentservice.NewFetcher(client, h.root, config.CollisionSuffix)
	exporter := exportservice.NewExportService(client, fetcher, h.root)
	svc := NewBackupService(client, exporter, h.catalog, client.BaseID(), config.BackupConfig{
		Root:          h.root,
		FailurePolicy: policy,
	})
	fetcher.SetListener(svc)
	return svc
}

func (h *harness) addTables() {
	url := h.srv.AddFile("att1/a.png", []byte("PNG"))
	h.srv.AddTable("Clients", fakeserver.Record{ID: "rec1", Fields: `{"Name":"Acme","Logo":[{"id":"att1","url":"` + url + `","filename":"a.png"}]}`})
	h.srv.AddTable("Projects", fakeserver.Record{ID: "rec2", Fields: `{"Name":"Apollo"}`})
	h.srv.AddTable("Invoices", fakeserver.Record{ID: "rec3", Fields: `{"Amount":10}`})
}

func TestRunBacksUpAllTablesInOrder(t *testing.T) {
	h := newHarness(t)
	h.addTables()

	report := h.service(config.FailurePolicyAbort).Run(context.Background())
	require.False(t, report.Failed(), "%v", report.Err)
	require.Len(t, report.Tables, 3)
	assert.Equal(t, "Clients", report.Tables[0].Table)
	assert.Equal(t, "Projects", report.Tables[1].Table)
	assert.Equal(t, "Invoices", report.Tables[2].Table)
	assert.Equal(t, 1, report.Tables[0].Attachments)

	for _, name := range []string{"Clients.csv", "Projects.csv", "Invoices.csv"} {
		assert.FileExists(t, filepath.Join(h.root, name))
	}
	assert.FileExists(t, filepath.Join(h.root, "Clients.Logo", "acme", "a.png"))

	runs, err := h.catalog.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Equal(t, database.StatusSuccess, runs[0].Status)
	assert.Equal(t, 3, runs[0].TableCount)

	tables, err := h.catalog.GetRunTables(report.RunID)
	require.NoError(t, err)
	assert.Len(t, tables, 3)

	files, err := h.catalog.GetRunAttachments(report.RunID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "rec1", files[0].RecordID)
	assert.Equal(t, int64(3), files[0].FileSize)
}

func TestRunAbortStopsAtFirstFailure(t *testing.T) {
	h := newHarness(t)
	h.addTables()
	h.srv.FailTable("Projects", http.StatusInternalServerError)

	report := h.service(config.FailurePolicyAbort).Run(context.Background())
	require.True(t, report.Failed())
	assert.True(t, errors.HasCode(report.Err, errors.ErrRemoteQuery))
	require.Len(t, report.Tables, 2)
	assert.NoError(t, report.Tables[0].Err)
	assert.Error(t, report.Tables[1].Err)

	assert.FileExists(t, filepath.Join(h.root, "Clients.csv"))
	assert.NoFileExists(t, filepath.Join(h.root, "Invoices.csv"))

	runs, err := h.catalog.ListRuns(1)
	require.NoError(t, err)
	assert.Equal(t, database.StatusFailed, runs[0].Status)
}

func TestRunContinuePolicy(t *testing.T) {
	h := newHarness(t)
	h.addTables()
	h.srv.FailTable("Projects", http.StatusInternalServerError)

	report := h.service(config.FailurePolicyContinue).Run(context.Background())
	require.True(t, report.Failed())
	require.Len(t, report.Tables, 3)
	assert.Error(t, report.Tables[1].Err)
	assert.NoError(t, report.Tables[2].Err)
	assert.FileExists(t, filepath.Join(h.root, "Invoices.csv"))

	tables, err := h.catalog.GetRunTables(report.RunID)
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, database.StatusFailed, tables[1].Status)
	assert.NotEmpty(t, tables[1].ErrorMsg)
}

func TestRunEnumerationFailure(t *testing.T) {
	h := newHarness(t)
	h.addTables()
	h.srv.FailMeta(http.StatusServiceUnavailable)

	report := h.service(config.FailurePolicyContinue).Run(context.Background())
	require.True(t, report.Failed())
	assert.Empty(t, report.Tables)
	assert.NoDirExists(t, h.root)

	for _, req := range h.srv.Requests() {
		assert.Contains(t, req, "/meta/")
	}
}

func TestRunCancelledContext(t *testing.T) {
	h := newHarness(t)
	h.addTables()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := h.service(config.FailurePolicyContinue).Run(ctx)
	require.True(t, report.Failed())
	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.Empty(t, report.Tables)
}

func TestRunWithoutCatalog(t *testing.T) {
	h := newHarness(t)
	h.addTables()

	client := airtable.NewClient(config.AirtableConfig{APIKey: "key", BaseID: "appBase", APIURL: h.srv.URL(), PageSize: 100})
	fetcher := attachmentservice.NewFetcher(client, h.root, config.CollisionSuffix)
	svc := NewBackupService(client, exportservice.NewExportService(client, fetcher, h.root), nil, "appBase",
		config.BackupConfig{Root: h.root})
	fetcher.SetListener(svc)

	report := svc.Run(context.Background())
	assert.False(t, report.Failed())
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Tables, 3)
}
