package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/contenthash"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REGISTRY_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestParseManifest(t *testing.T) {
	a := domain.HashContent([]byte("a"))
	b := domain.HashContent([]byte("b"))
	input := strings.Join([]string{
		"content_hash,license_id",
		"# exported by the bulk pipeline",
		a.Hex() + ", CC-BY-4.0",
		contenthash.CID(b) + ",MIT",
		"not-a-hash,MIT",
		"only-one-column",
	}, "\n")

	rows, err := parseManifest(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, a, rows[0].Hash)
	assert.Equal(t, "CC-BY-4.0", rows[0].LicenseID)
	assert.NoError(t, rows[0].Err)
	assert.Equal(t, 3, rows[0].Line)

	assert.Equal(t, b, rows[1].Hash)
	assert.NoError(t, rows[1].Err)

	assert.ErrorIs(t, rows[2].Err, domain.ErrInvalidHashFormat)
	assert.Error(t, rows[3].Err)
}

func TestRegisterBatchReportsEveryRow(t *testing.T) {
	hash := domain.HashContent([]byte("image"))
	manifest := filepath.Join(t.TempDir(), "manifest.csv")
	body := strings.Join([]string{
		hash.Hex() + ",CC-BY-4.0",
		hash.Hex() + ",MIT",
		"zz,MIT",
	}, "\n")
	require.NoError(t, os.WriteFile(manifest, []byte(body), 0o600))

	out, err := runCLI(t, "register-batch", manifest)
	require.Error(t, err)

	var summary registerSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Registered)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Results, 3)
	require.NotNil(t, summary.Results[0].Receipt)
	assert.Equal(t, domain.TxActionRegister, summary.Results[0].Receipt.Action)
	assert.Contains(t, summary.Results[1].Error, "already registered")
	assert.Contains(t, summary.Results[2].Error, "invalid hash format")
}

func TestStatusOfUnregisteredHash(t *testing.T) {
	out, err := runCLI(t, "status", domain.HashContent([]byte("x")).Hex())
	require.NoError(t, err)

	var status domain.LicenseStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.False(t, status.Exists)
	assert.Nil(t, status.LicenseID)
}

func TestBatchReadsHashFile(t *testing.T) {
	a := domain.HashContent([]byte("a"))
	b := domain.HashContent([]byte("b"))
	list := filepath.Join(t.TempDir(), "hashes.txt")
	require.NoError(t, os.WriteFile(list, []byte("# hashes\n"+b.Hex()+"\n\n"), 0o600))

	out, err := runCLI(t, "batch", a.Hex(), "--file", list)
	require.NoError(t, err)

	var statuses map[string]domain.LicenseStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	assert.Len(t, statuses, 2)
	assert.Contains(t, statuses, a.Hex())
	assert.Contains(t, statuses, b.Hex())
}

func TestHashDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.png"), []byte("png bytes"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	out, err := runCLI(t, "hash", dir)
	require.NoError(t, err)

	var hashes []contenthash.FileHash
	require.NoError(t, json.Unmarshal([]byte(out), &hashes))
	require.Len(t, hashes, 1)
	want := domain.HashContent([]byte("png bytes"))
	assert.Equal(t, want, hashes[0].Hash)
	assert.Equal(t, contenthash.CID(want), hashes[0].CID)
}

func TestSchemaCommand(t *testing.T) {
	out, err := runCLI(t, "schema")
	require.NoError(t, err)
	var report schemaReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Valid)

	broken := filepath.Join(t.TempDir(), "abi.json")
	require.NoError(t, os.WriteFile(broken, []byte(`[{"type":"function","name":"licenses","inputs":[{"name":"h","type":"bytes32"}],"outputs":[{"name":"o","type":"address"}]}]`), 0o600))
	out, err = runCLI(t, "schema", "--abi", broken)
	require.ErrorIs(t, err, domain.ErrSchemaMismatch)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
}
