package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ragindex/internal/domain"
)

func validSnapshot() *Snapshot {
	return &Snapshot{
		BuildID:   "b1",
		ModelInfo: "m",
		Dimension: 2,
		Vectors:   [][]float32{{1, 0}, {0, 1}},
		Metadata: []domain.ChunkMeta{
			{Document: "A", ChunkIndex: 0, TotalChunks: 2},
			{Document: "A", ChunkIndex: 1, TotalChunks: 2},
		},
		Texts: []string{"one", "two"},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validSnapshot().Validate())

	cases := map[string]func(s *Snapshot){
		"no vectors":       func(s *Snapshot) { s.Vectors = nil },
		"short metadata":   func(s *Snapshot) { s.Metadata = s.Metadata[:1] },
		"short texts":      func(s *Snapshot) { s.Texts = s.Texts[:1] },
		"bad dimension":    func(s *Snapshot) { s.Dimension = 0 },
		"ragged vector":    func(s *Snapshot) { s.Vectors[1] = []float32{1} },
		"empty document":   func(s *Snapshot) { s.Metadata[0].Document = "" },
		"index past total": func(s *Snapshot) { s.Metadata[1].ChunkIndex = 2 },
		"repeated index":   func(s *Snapshot) { s.Metadata[1].ChunkIndex = 0 },
		"mixed totals":     func(s *Snapshot) { s.Metadata[1].TotalChunks = 3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := validSnapshot()
			mutate(s)
			assert.ErrorIs(t, s.Validate(), domain.ErrPersistence)
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	var s *Snapshot
	assert.ErrorIs(t, s.Validate(), domain.ErrPersistence)
}
