package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/lumenworks/shuttle/engine"
)

func openTestLog(t *testing.T, cap int) *Log {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "history.db"), cap)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func record(id string) engine.HistoryRecord {
	return engine.HistoryRecord{
		JobID:       id,
		Kind:        engine.KindBackup,
		Status:      engine.StatusCompleted,
		FilesTotal:  3,
		FilesDone:   3,
		BytesDone:   30,
		CompletedAt: time.Now(),
	}
}

func TestLog_AppendAndList(t *testing.T) {
	log := openTestLog(t, 0)

	require.NoError(t, log.Append(record("one")))
	require.NoError(t, log.Append(record("two")))
	require.NoError(t, log.Append(record("three")))

	records, err := log.List()
	require.NoError(t, err)
	require.Len(t, records, 3)

	// most recent first
	assert.Equal(t, "three", records[0].JobID)
	assert.Equal(t, "two", records[1].JobID)
	assert.Equal(t, "one", records[2].JobID)
}

func TestLog_CapPrunesOldest(t *testing.T) {
	log := openTestLog(t, 5)

	for i := 0; i < 8; i++ {
		require.NoError(t, log.Append(record(fmt.Sprintf("job-%d", i))))
	}

	records, err := log.List()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "job-7", records[0].JobID)
	assert.Equal(t, "job-3", records[4].JobID)
}

func TestLog_EmptyIsNotAnError(t *testing.T) {
	log := openTestLog(t, 0)

	records, err := log.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLog_CorruptDocumentReadsAsEmpty(t *testing.T) {
	log := openTestLog(t, 0)
	require.NoError(t, log.Append(record("before")))

	// scribble over the document
	err := log.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(historyBucket).Put(recordsKey, []byte("{not json["))
	})
	require.NoError(t, err)

	records, err := log.List()
	require.NoError(t, err, "corruption must never be a fatal read error")
	assert.Empty(t, records)

	// appending over a corrupt document starts fresh
	require.NoError(t, log.Append(record("after")))
	records, err = log.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "after", records[0].JobID)
}
