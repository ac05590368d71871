package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spm-spots/internal/format/stp"
	"spm-spots/internal/scan"
	"spm-spots/internal/store"
)

func writeScan(t *testing.T, dir, name string) string {
	t.Helper()
	f, err := scan.FrameFromRows(0, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	ds := &scan.Dataset{
		Header: scan.Header{Rows: 2, Cols: 2, FrameCount: 1, XSizeNm: 10, YSizeNm: 10},
		Frames: []*scan.Frame{f},
	}
	require.NoError(t, stp.Write(path, ds))
	return path
}

// freshHome points the user config directory at an empty temp dir.
func freshHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	return home
}

func TestRunWithoutConfigFile(t *testing.T) {
	freshHome(t)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "l0.txt")

	code := run([]string{"-no-db", "-log", logPath, writeScan(t, dir, "a.stp")})
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "l0 for a.stp: "))
}

func TestRunReportsFailuresAndClosesStore(t *testing.T) {
	freshHome(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.stp")
	require.NoError(t, os.WriteFile(bad, []byte("not a scan\n"), 0o644))
	dbPath := filepath.Join(dir, "results.db")

	code := run([]string{"-db", dbPath, writeScan(t, dir, "a.stp"), bad, writeScan(t, dir, "c.stp")})
	assert.Equal(t, 2, code)

	data, err := os.ReadFile(filepath.Join(dir, "l0", "l0.txt"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRunNeedsInputs(t *testing.T) {
	freshHome(t)
	assert.Equal(t, 1, run(nil))
	assert.Equal(t, 1, run([]string{"-no-such-flag"}))
}
