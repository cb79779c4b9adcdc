package pdfrag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestJob_Start(t *testing.T) {
	t.Parallel()

	updatedAt := time.Now().UTC()

	t.Run("queued to processing", func(t *testing.T) {
		t.Parallel()

		j := &IngestJob{Status: JobStatusQueued, StatusMessage: "retrying"}
		require.NoError(t, j.Start(updatedAt))
		assert.Equal(t, JobStatusProcessing, j.Status)
		assert.Empty(t, j.StatusMessage)
		assert.Equal(t, 1, j.Attempts)
		assert.Equal(t, updatedAt, j.Updated.T)
	})

	t.Run("cannot start completed job", func(t *testing.T) {
		t.Parallel()

		j := &IngestJob{Status: JobStatusCompleted}
		require.Error(t, j.Start(updatedAt))
		assert.Equal(t, JobStatusCompleted, j.Status)
		assert.Equal(t, 0, j.Attempts)
	})
}

func TestIngestJob_Requeue(t *testing.T) {
	t.Parallel()

	updatedAt := time.Now().UTC()

	j := &IngestJob{Status: JobStatusProcessing, Attempts: 1}
	require.NoError(t, j.Requeue("embedding failed", updatedAt))
	assert.Equal(t, JobStatusQueued, j.Status)
	assert.Equal(t, "embedding failed", j.StatusMessage)

	require.Error(t, j.Requeue("again", updatedAt))
}

func TestIngestJob_CompleteWithStatus(t *testing.T) {
	t.Parallel()

	updatedAt := time.Now().UTC()

	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		message string
		wantErr bool
	}{
		{
			name: "processing to completed",
			from: JobStatusProcessing,
			to:   JobStatusCompleted,
		},
		{
			name:    "processing to skipped",
			from:    JobStatusProcessing,
			to:      JobStatusSkipped,
			message: "no text extracted",
		},
		{
			name:    "processing to failed",
			from:    JobStatusProcessing,
			to:      JobStatusFailed,
			message: "some error message",
		},
		{
			name:    "cannot complete a queued job",
			from:    JobStatusQueued,
			to:      JobStatusCompleted,
			wantErr: true,
		},
		{
			name:    "cannot fail a queued job",
			from:    JobStatusQueued,
			to:      JobStatusFailed,
			wantErr: true,
		},
		{
			name:    "queued is not a completion status",
			from:    JobStatusProcessing,
			to:      JobStatusQueued,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			j := &IngestJob{
				Status: tt.from,
			}
			err := j.CompleteWithStatus(tt.to, tt.message, updatedAt)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.from, j.Status)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, j.Status)
			assert.Equal(t, tt.message, j.StatusMessage)
			assert.Equal(t, updatedAt, j.Updated.T)
		})
	}
}

func TestTime_ValueScan(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

	value, err := Time{T: now}.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14T09:26:53.589Z", value)

	var scanned Time
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, now, scanned.T)

	require.NoError(t, scanned.Scan([]byte("2025-03-14T09:26:53Z")))
	assert.Equal(t, now.Truncate(time.Second), scanned.T)

	require.Error(t, scanned.Scan(42))
}
