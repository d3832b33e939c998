package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/service"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "seed", "backup", "restore"}, names)
}

func TestBackupFlags(t *testing.T) {
	cmd := newBackupCmd()
	for _, name := range []string{"output", "tools", "reports", "settings", "profile"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "o", cmd.Flags().Lookup("output").Shorthand)
}

func TestRestoreRequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"restore"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

type fakeExporter struct {
	opts service.ExportOptions
}

func (f *fakeExporter) Export(_ context.Context, opts service.ExportOptions, w io.Writer) (string, error) {
	f.opts = opts
	_, err := io.WriteString(w, `{"tools":[]}`)
	return "toolkeepr-export-2024-03-15.json", err
}

// failingFile accepts writes and fails on Close, like a full disk flushing late.
type failingFile struct{ bytes.Buffer }

func (f *failingFile) Close() error { return errors.New("no space left on device") }

func TestWriteSnapshot(t *testing.T) {
	ctx := context.Background()
	opts := service.ExportOptions{Tools: true}

	t.Run("stdout", func(t *testing.T) {
		var out bytes.Buffer
		exp := &fakeExporter{}
		name, err := writeSnapshot(ctx, exp, opts, "-", &out, createFile)
		require.NoError(t, err)
		assert.Equal(t, "toolkeepr-export-2024-03-15.json", name)
		assert.Equal(t, `{"tools":[]}`, out.String())
		assert.Equal(t, opts, exp.opts)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "snapshot.json")
		_, err := writeSnapshot(ctx, &fakeExporter{}, opts, path, io.Discard, createFile)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{"tools":[]}`, string(data))
	})

	t.Run("close failure fails the backup", func(t *testing.T) {
		create := func(string) (io.WriteCloser, error) { return &failingFile{}, nil }
		_, err := writeSnapshot(ctx, &fakeExporter{}, opts, "snapshot.json", io.Discard, create)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no space left on device")
	})

	t.Run("create failure", func(t *testing.T) {
		_, err := writeSnapshot(ctx, &fakeExporter{}, opts, filepath.Join(t.TempDir(), "missing", "x.json"), io.Discard, createFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create")
	})
}
