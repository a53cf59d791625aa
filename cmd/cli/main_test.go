package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"excelinsights/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() (*config.Config, error) {
	return config.LoadFrom(viper.New())
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("Region,Units,Sale Amount\nEast,10,100\nWest,2,250\nEast,,50\n"), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(testLoader)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProfileCommand(t *testing.T) {
	out, err := execute(t, "profile", writeCSV(t))
	require.NoError(t, err)
	assert.Contains(t, out, "orders.csv: 3 rows, 3 columns, 1 missing values")
	assert.Contains(t, out, "COLUMN")
	assert.Contains(t, out, "Sale Amount")
}

func TestAskCommand(t *testing.T) {
	out, err := execute(t, "ask", writeCSV(t), "What", "is", "the", "total", "Sale", "Amount?")
	require.NoError(t, err)
	assert.Contains(t, out, "400.00")
	assert.Contains(t, out, "(source: heuristic)")
}

func TestExportCommand(t *testing.T) {
	path := writeCSV(t)
	out, err := execute(t, "export", path, "--format", "md")
	require.NoError(t, err)
	assert.Contains(t, out, "orders_analysis.md")

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "orders_analysis.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Analysis of orders.csv")

	_, err = execute(t, "export", path, "--format", "docx")
	assert.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	_, err := execute(t, "profile", filepath.Join(t.TempDir(), "none.csv"))
	assert.ErrorContains(t, err, "failed to read")
}
