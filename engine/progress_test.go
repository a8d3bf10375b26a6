package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeSample_SpeedAndETA(t *testing.T) {
	job := Job{ID: "j1", FilesTotal: 4, FilesDone: 1, BytesTotal: 1000, BytesDone: 200}

	// 200 committed plus 50 in flight
	s := computeSample(job, "file.bin", 1, 250, 1*time.Second)
	assert.Equal(t, int64(250), s.BytesDone)
	assert.InDelta(t, 250.0, s.Speed, 0.01)
	assert.InDelta(t, 3.0, s.ETASeconds, 0.01) // 750 remaining at 250 B/s
}

func TestComputeSample_ZeroElapsed(t *testing.T) {
	job := Job{ID: "j1", BytesTotal: 100, BytesDone: 10}
	s := computeSample(job, "f", 0, 10, 0)
	assert.Zero(t, s.Speed)
	assert.Zero(t, s.ETASeconds, "ETA is 0 when speed is unknown")
}

func TestComputeSample_SaturatesRemaining(t *testing.T) {
	// totals are an estimate; done may run ahead of them
	job := Job{ID: "j1", BytesTotal: 100, BytesDone: 100}
	s := computeSample(job, "f", 0, 140, time.Second)
	assert.Equal(t, int64(140), s.BytesDone)
	assert.Zero(t, s.ETASeconds, "ETA never goes negative")
}

func TestComputeSample_CarriesCounters(t *testing.T) {
	job := Job{ID: "j9", FilesTotal: 7, FilesDone: 3, FilesSkipped: 1, BytesTotal: 70, BytesDone: 30}
	s := computeSample(job, "current.txt", 4, 30, time.Second)
	assert.Equal(t, "j9", s.JobID)
	assert.Equal(t, "current.txt", s.FileName)
	assert.Equal(t, 4, s.FileIndex)
	assert.Equal(t, 7, s.FilesTotal)
	assert.Equal(t, 3, s.FilesDone)
	assert.Equal(t, 1, s.FilesSkipped)
}
