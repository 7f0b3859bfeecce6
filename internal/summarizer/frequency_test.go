package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_PicksFrequentSentencesInOriginalOrder(t *testing.T) {
	text := "Contracts bind parties. The weather was pleasant. " +
		"A contract needs consent of parties. Parties to contracts must be competent."

	got, err := NewFrequencySummarizer().Summarize(text, 2)

	require.NoError(t, err)
	assert.Equal(t, "Contracts bind parties. Parties to contracts must be competent.", got)
}

func TestSummarize_BengaliDanda(t *testing.T) {
	text := "সংবিধান সর্বোচ্চ আইন। আজ বৃষ্টি হয়েছে। সংবিধান অনুযায়ী আইন প্রণীত হয়।"

	got, err := NewFrequencySummarizer().Summarize(text, 2)

	require.NoError(t, err)
	assert.Equal(t, "সংবিধান সর্বোচ্চ আইন। সংবিধান অনুযায়ী আইন প্রণীত হয়।", got)
}

func TestSummarize_FewerSentencesThanRequested(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("  Only   one sentence here.  ", 3)

	require.NoError(t, err)
	assert.Equal(t, "Only one sentence here.", got)
}

func TestSummarize_DefaultCount(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteString("Law applies to everyone equally. ")
	}

	got, err := NewFrequencySummarizer().Summarize(b.String(), 0)

	require.NoError(t, err)
	assert.Equal(t, DefaultSentences, strings.Count(got, "Law applies"))
}

func TestSummarize_EmptyText(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("   ", 3)

	require.NoError(t, err)
	assert.Empty(t, got)
}
