package hugot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/knights-analytics/hugot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardKnop/pdfrag"
)

func TestCheckModelExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	modelPath, err := checkModelExists(dir, DefaultModel)
	require.NoError(t, err)
	assert.Empty(t, modelPath)

	expected := filepath.Join(dir, "sentence-transformers_all-MiniLM-L6-v2")
	require.NoError(t, os.Mkdir(expected, 0o755))

	modelPath, err = checkModelExists(dir, DefaultModel)
	require.NoError(t, err)
	assert.Equal(t, expected, modelPath)

	// Revision suffixes are ignored.
	modelPath, err = checkModelExists(dir, DefaultModel+":main")
	require.NoError(t, err)
	assert.Equal(t, expected, modelPath)
}

func TestNew_BatchSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		assert.Equal(t, defaultBatchSize, newAdapter(nil, WithBatchSize(size)).batchSize)
	}
	assert.Equal(t, 8, newAdapter(nil, WithBatchSize(8)).batchSize)
}

func TestEmbed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping model download in short mode")
	}
	modelsDir := os.Getenv("PDFRAG_TEST_MODELS_DIR")
	if modelsDir == "" {
		t.Skip("PDFRAG_TEST_MODELS_DIR not set")
	}

	session, err := hugot.NewGoSession()
	require.NoError(t, err)
	defer func() {
		require.NoError(t, session.Destroy())
	}()

	adapter, err := New(session, WithModelsDir(modelsDir), WithBatchSize(2))
	require.NoError(t, err)

	chunks := []pdfrag.Chunk{
		{Content: "Paris is the capital of France."},
		{Content: "Berlin is the capital of Germany."},
		{Content: "The mitochondria is the powerhouse of the cell."},
	}

	vectors, err := adapter.EmbedDocuments(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, vectors, len(chunks))
	for _, vec := range vectors {
		assert.Len(t, vec, 384)
	}

	query, err := adapter.EmbedContent(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Len(t, query, 384)
}
