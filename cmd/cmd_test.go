package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	props := filepath.Join(dir, "properties.tsv")
	require.NoError(t, os.WriteFile(props, []byte("PG\tPine Grove Rd\tSpringfield, IL 62701\n"), 0o644))

	exports := filepath.Join(dir, "exports")
	cfg := "template_path: " + filepath.Join(dir, "template.xlsx") + "\n" +
		"properties_file: " + props + "\n" +
		"export_dir: " + exports + "\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, exports
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Tenant Invoicer")
	assert.Contains(t, out, "Version:    "+Version)
}

func TestPropertiesCommand(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := execute(t, "properties", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "CODE")
	assert.Contains(t, out, "Pine Grove Rd")
}

func TestPruneCommand(t *testing.T) {
	cfg, exports := writeConfig(t)
	old := filepath.Join(exports, "2024-01_old")
	require.NoError(t, os.MkdirAll(old, 0o755))
	past := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	out, err := execute(t, "prune", "--config", cfg, "--older-than", "24h")
	require.NoError(t, err)
	assert.Contains(t, out, "1 run directories")
	assert.NoDirExists(t, old)

	_, err = execute(t, "prune", "--config", cfg, "--older-than", "soon")
	require.Error(t, err)
	assert.True(t, ierr.IsConfiguration(err))
}

func TestGenerateRequiresInputs(t *testing.T) {
	cfg, _ := writeConfig(t)

	_, err := execute(t, "generate", "--config", cfg, "--property", "", "--ledger", "")
	require.Error(t, err)
	assert.Contains(t, ierr.UserMessage(err), "property code is required")

	_, err = execute(t, "generate", "--config", cfg, "--property", "PG", "--ledger", "ledger.xlsx", "--water", "")
	require.Error(t, err)
	assert.Contains(t, ierr.UserMessage(err), "--skip-water")
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := execute(t, "properties", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.True(t, ierr.IsConfiguration(err))
}
