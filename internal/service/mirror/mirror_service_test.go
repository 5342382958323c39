package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/errors"
)

type memoryProvider struct {
	objects  map[string]string
	types    map[string]string
	connErr  error
	failKey  string
	attempts int
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{objects: map[string]string{}, types: map[string]string{}}
}

func (p *memoryProvider) UploadFile(_ context.Context, key string, r io.Reader, contentType string) error {
	p.attempts++
	if key == p.failKey {
		return errors.NewWithDetails(errors.ErrMirrorUpload, errors.GetErrorMessage(errors.ErrMirrorUpload), key)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.objects[key] = string(data)
	p.types[key] = contentType
	return nil
}

func (p *memoryProvider) TestConnection(context.Context) error {
	return p.connErr
}

func writeTree(t *testing.T) string {
	root := t.TempDir()
	files := map[string]string{
		"Clients.csv":                "Name,id\nAcme,rec1\n",
		"Clients.Logo/acme/a.png":    "PNG",
		"Clients.Logo/acme/notes.xx": "?",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func TestMirrorDirectory(t *testing.T) {
	root := writeTree(t)
	provider := newMemoryProvider()
	svc := NewMirrorService(provider, "/airtable_backup/")

	res, err := svc.MirrorDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Uploaded)
	assert.Equal(t, int64(len("Name,id\nAcme,rec1\n")+len("PNG")+1), res.Bytes)

	keys := make([]string, 0, len(provider.objects))
	for k := range provider.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"airtable_backup/Clients.Logo/acme/a.png",
		"airtable_backup/Clients.Logo/acme/notes.xx",
		"airtable_backup/Clients.csv",
	}, keys)
	assert.Equal(t, "PNG", provider.objects["airtable_backup/Clients.Logo/acme/a.png"])
	assert.Equal(t, "image/png", provider.types["airtable_backup/Clients.Logo/acme/a.png"])
	assert.Equal(t, "application/octet-stream", provider.types["airtable_backup/Clients.Logo/acme/notes.xx"])
}

func TestMirrorConnectionFailure(t *testing.T) {
	root := writeTree(t)
	provider := newMemoryProvider()
	provider.connErr = errors.New(errors.ErrMirrorConnection, "down")

	_, err := NewMirrorService(provider, "p").MirrorDirectory(context.Background(), root)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMirrorConnection))
	assert.Zero(t, provider.attempts)
}

func TestMirrorUploadFailureStops(t *testing.T) {
	root := writeTree(t)
	provider := newMemoryProvider()
	provider.failKey = "Clients.Logo/acme/a.png"

	res, err := NewMirrorService(provider, "").MirrorDirectory(context.Background(), root)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMirrorUpload))
	assert.Less(t, res.Uploaded, 3)
	assert.FileExists(t, filepath.Join(root, "Clients.csv"))
}

func TestMirrorMissingRoot(t *testing.T) {
	_, err := NewMirrorService(newMemoryProvider(), "").MirrorDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrFileRead))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "b.csv", NewMirrorService(nil, "").ObjectKey("b.csv"))
	assert.Equal(t, "backup/T.F/x/a.png", NewMirrorService(nil, "backup/").ObjectKey(filepath.Join("T.F", "x", "a.png")))
}

func TestCreateProviderUnsupported(t *testing.T) {
	f := &ProviderFactory{}
	_, err := f.CreateProvider(config.MirrorConfig{Provider: "dropbox", Bucket: "b"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMirrorProviderNotSupported))
	assert.Contains(t, fmt.Sprint(err), "dropbox")
}

func TestCreateTencentProvider(t *testing.T) {
	f := &ProviderFactory{}
	p, err := f.CreateProvider(config.MirrorConfig{Provider: ProviderTencent, Bucket: "b-125", Region: "ap-guangzhou", AccessKey: "id", SecretKey: "key"})
	require.NoError(t, err)
	assert.IsType(t, &TencentCOSProvider{}, p)
}

func TestCreateAliyunProvider(t *testing.T) {
	f := &ProviderFactory{}
	p, err := f.CreateProvider(config.MirrorConfig{Provider: ProviderAliyun, Bucket: "backup-bucket", Region: "cn-hangzhou", AccessKey: "id", SecretKey: "key"})
	require.NoError(t, err)
	assert.IsType(t, &AliyunOSSProvider{}, p)
}
