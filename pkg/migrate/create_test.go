package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestScaffoldSlugsDescription(t *testing.T) {
	dir := t.TempDir()
	file, err := Scaffold(dir, "  Add Order Notes!! ", fixedNow)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260314093000_add_order_notes.sql"), file)
	require.NoError(t, Lint(os.DirFS(dir)))
}

func TestScaffoldRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, err := Scaffold(dir, "refunds", fixedNow)
	require.NoError(t, err)
	_, err = Scaffold(dir, "refunds", fixedNow)
	require.Error(t, err)
}

func TestScaffoldRejectsEmptyDescription(t *testing.T) {
	_, err := Scaffold(t.TempDir(), "!!!", fixedNow)
	require.Error(t, err)
}

func TestLintReportsEveryProblem(t *testing.T) {
	source := fstest.MapFS{
		"orders.sql":                     {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_only_up.sql":     {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"20260101000000_dup_version.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260102000000_unbalanced.sql":  {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")},
		"20260103000000_ok.sql":          {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 2;\n")},
	}

	err := Lint(source)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 4)
	require.ErrorContains(t, err, "orders.sql: name must look like")
	require.ErrorContains(t, err, "already used by")
	require.ErrorContains(t, err, "20260101000000_only_up.sql: missing")
	require.ErrorContains(t, err, "unbalanced")
}

func TestLintDownBeforeUp(t *testing.T) {
	err := Lint(fstest.MapFS{
		"20260101000000_flipped.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
	})
	require.ErrorContains(t, err, "Down section precedes Up")
}
