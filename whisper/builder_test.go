package whisper

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLayoutAndSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metric.wsp")

	archives := []ArchiveInfo{
		{SecondsPerPoint: 3600, Points: 24},
		{SecondsPerPoint: 60, Points: 720},
	}

	w, err := Create(path, archives, DefaultOptions())
	require.NoError(t, err)
	defer w.Close()

	info := w.Info()
	require.Len(t, info.Archives, 2)
	assert.Equal(t, uint32(60), info.Archives[0].SecondsPerPoint, "archives are stored ascending by step")
	assert.Equal(t, uint32(3600), info.Archives[1].SecondsPerPoint)
	assert.Equal(t, uint32(3600*24), info.MaxRetention)

	fi, err := w.file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(info.fileSize()), fi.Size())
}

func TestCreateRejectsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metric.wsp")

	archives := []ArchiveInfo{{SecondsPerPoint: 60, Points: 10}}
	w, err := Create(path, archives, DefaultOptions())
	require.NoError(t, err)
	w.Close()

	_, err = Create(path, archives, DefaultOptions())
	assert.Error(t, err)
}

func TestCreateRejectsInvalidRetentions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metric.wsp")
	_, err := Create(path, nil, DefaultOptions())
	assert.Error(t, err)
}

func TestCreateSparse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metric.wsp")
	opts := DefaultOptions()
	opts.Sparse = true

	archives := []ArchiveInfo{{SecondsPerPoint: 60, Points: 1000}}
	w, err := Create(path, archives, opts)
	require.NoError(t, err)
	defer w.Close()

	fi, err := w.file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(w.Info().fileSize()), fi.Size())
}
