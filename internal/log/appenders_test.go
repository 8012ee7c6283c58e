package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinecone-robotics/sentry-core/pkg/workpool"
)

func TestFileLogAppender_EmitWritesLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentry.log")
	pool := workpool.New(1)
	defer pool.Close()

	a, err := NewFileAppender(path, pool)
	require.NoError(t, err)
	a.Emit("first line")
	a.Emit("second line")
	pool.Close()
	require.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line\n", string(data))
}

func TestFileLogAppender_AppendsAcrossReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentry.log")
	pool := workpool.New(1)
	defer pool.Close()

	a1, err := NewFileAppender(path, pool)
	require.NoError(t, err)
	a1.Emit("one")
	pool.Close()
	a1.Close()

	pool2 := workpool.New(1)
	defer pool2.Close()
	a2, err := NewFileAppender(path, pool2)
	require.NoError(t, err)
	a2.Emit("two")
	pool2.Close()
	a2.Close()

	data, _ := os.ReadFile(path)
	assert.Equal(t, "one\ntwo\n", string(data), "FileLogAppender must append, not truncate")
}

func TestStdoutLogAppender_CloseIsNoop(t *testing.T) {
	a := NewStdoutAppender()
	assert.NoError(t, a.Close())
}
