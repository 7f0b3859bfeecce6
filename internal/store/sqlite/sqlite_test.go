package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindex/internal/domain"
	"ragindex/internal/store"
)

func sampleSnapshot(buildID string) *store.Snapshot {
	return &store.Snapshot{
		BuildID:   buildID,
		ModelInfo: "hashing-fnv1a-2",
		Dimension: 2,
		Vectors: [][]float32{
			{0.6, 0.8},
			{float32(-math.Sqrt2 / 2), float32(math.Sqrt2 / 2)},
			{math.SmallestNonzeroFloat32, 1},
		},
		Metadata: []domain.ChunkMeta{
			{Document: "চুক্তি আইন", ChunkIndex: 0, TotalChunks: 2},
			{Document: "চুক্তি আইন", ChunkIndex: 1, TotalChunks: 2},
			{Document: "Penal Code", ChunkIndex: 0, TotalChunks: 1},
		},
		Texts: []string{
			"চুক্তি হলো আইন দ্বারা বলবৎযোগ্য সম্মতি।",
			"invalid \xff utf-8 is stored byte for byte",
			"Whoever intends to cause wrongful gain.",
		},
	}
}

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestSaveLoad_RoundTripIsExact(t *testing.T) {
	s, dir := newStore(t)
	in := sampleSnapshot("build-1")

	require.NoError(t, s.Save(context.Background(), in))
	out, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, filepath.Join(dir, FileName), s.Path())
}

func TestExists(t *testing.T) {
	s, _ := newStore(t)
	assert.False(t, s.Exists())

	require.NoError(t, s.Save(context.Background(), sampleSnapshot("b")))

	assert.True(t, s.Exists())
}

func TestSave_ReplacesPreviousBuild(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Save(context.Background(), sampleSnapshot("old")))

	next := sampleSnapshot("new")
	next.Vectors = next.Vectors[:1]
	next.Metadata = next.Metadata[:1]
	next.Texts = next.Texts[:1]
	require.NoError(t, s.Save(context.Background(), next))

	out, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", out.BuildID)
	assert.Len(t, out.Texts, 1)
}

func TestSave_RefusesInconsistentSnapshotAndKeepsPrevious(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Save(context.Background(), sampleSnapshot("good")))

	bad := sampleSnapshot("bad")
	bad.Metadata = bad.Metadata[:2]
	err := s.Save(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	out, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "good", out.BuildID)
}

func TestLoad_NothingSaved(t *testing.T) {
	s, _ := newStore(t)

	snap, err := s.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Nil(t, snap)
}

func TestLoad_MissingRowRejected(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Save(context.Background(), sampleSnapshot("b")))
	_, err := s.db.Exec(`DELETE FROM chunk_texts WHERE ordinal = 1`)
	require.NoError(t, err)

	_, err = s.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorContains(t, err, "lengths differ")
}

func TestLoad_RowFromOtherBuildRejected(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Save(context.Background(), sampleSnapshot("b")))
	_, err := s.db.Exec(`UPDATE chunk_metadata SET build_id = 'other' WHERE ordinal = 2`)
	require.NoError(t, err)

	_, err = s.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorContains(t, err, "different build")
}

func TestLoad_TruncatedVectorRejected(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Save(context.Background(), sampleSnapshot("b")))
	_, err := s.db.Exec(`UPDATE vectors SET vector = ? WHERE ordinal = 0`, []byte{1, 2, 3})
	require.NoError(t, err)

	_, err = s.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestReopenSeesSavedBuild(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, first.Save(context.Background(), sampleSnapshot("persisted")))
	require.NoError(t, first.Close())

	second, err := New(dir, nil)
	require.NoError(t, err)
	defer second.Close()
	out, err := second.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "persisted", out.BuildID)
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, -0.5, 1e-30, float32(math.Inf(1))}

	got, err := decodeVector(encodeVector(v))

	require.NoError(t, err)
	assert.Equal(t, v, got)
	_, err = decodeVector([]byte{0, 0})
	assert.Error(t, err)
}
