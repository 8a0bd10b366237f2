package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRanker_Rank(t *testing.T) {
	ranker := NewRanker(nil)

	tests := []struct {
		name       string
		candidates []Candidate
		want       Channel
		wantSim    float64
	}{
		{
			name: "higher similarity wins",
			candidates: []Candidate{
				{Channel: ChannelSpeech, Similarity: 0.8, StartTime: 10, EndTime: 20},
				{Channel: ChannelCaption, Similarity: 0.6, StartTime: 30, EndTime: 40},
			},
			want:    ChannelSpeech,
			wantSim: 0.8,
		},
		{
			name: "caption beats weaker speech",
			candidates: []Candidate{
				{Channel: ChannelSpeech, Similarity: 0.3},
				{Channel: ChannelCaption, Similarity: 0.55},
			},
			want:    ChannelCaption,
			wantSim: 0.55,
		},
		{
			name: "tie resolves to priority",
			candidates: []Candidate{
				{Channel: ChannelCaption, Similarity: 0.7},
				{Channel: ChannelSpeech, Similarity: 0.7},
			},
			want:    ChannelSpeech,
			wantSim: 0.7,
		},
		{
			name:       "missing channel counts as zero",
			candidates: []Candidate{{Channel: ChannelCaption, Similarity: 0.2}},
			want:       ChannelCaption,
			wantSim:    0.2,
		},
		{
			name: "zero speech loses to positive caption",
			candidates: []Candidate{
				{Channel: ChannelSpeech, Similarity: 0},
				{Channel: ChannelCaption, Similarity: 0.01},
			},
			want:    ChannelCaption,
			wantSim: 0.01,
		},
		{
			name: "best candidate per channel",
			candidates: []Candidate{
				{Channel: ChannelSpeech, Similarity: 0.4},
				{Channel: ChannelSpeech, Similarity: 0.9},
				{Channel: ChannelCaption, Similarity: 0.85},
			},
			want:    ChannelSpeech,
			wantSim: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ranker.Rank(tt.candidates)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Channel)
			assert.Equal(t, tt.wantSim, got.Similarity)
		})
	}
}

func TestRanker_TimeRangeFollowsWinner(t *testing.T) {
	got, err := NewRanker(nil).Rank([]Candidate{
		{Channel: ChannelSpeech, Similarity: 0.8, StartTime: 10, EndTime: 20},
		{Channel: ChannelCaption, Similarity: 0.6, StartTime: 30, EndTime: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.StartTime)
	assert.Equal(t, 20.0, got.EndTime)
}

func TestRanker_CustomPriority(t *testing.T) {
	ranker := NewRanker([]Channel{ChannelCaption, ChannelSpeech})
	got, err := ranker.Rank([]Candidate{
		{Channel: ChannelSpeech, Similarity: 0.5},
		{Channel: ChannelCaption, Similarity: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, ChannelCaption, got.Channel)

	// channels outside the priority list lose ties to listed ones
	got, err = ranker.Rank([]Candidate{
		{Channel: ChannelImage, Similarity: 0.5},
		{Channel: ChannelSpeech, Similarity: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, ChannelSpeech, got.Channel)
}

func TestRanker_NoCandidates(t *testing.T) {
	ranker := NewRanker(nil)

	_, err := ranker.Rank([]Candidate{
		{Channel: ChannelSpeech, Similarity: 0},
		{Channel: ChannelCaption, Similarity: 0},
	})
	var noCands *NoCandidatesError
	require.ErrorAs(t, err, &noCands)
	assert.ElementsMatch(t, []Channel{ChannelSpeech, ChannelCaption}, noCands.Channels)
	assert.Contains(t, err.Error(), "speech")

	_, err = ranker.Rank(nil)
	require.ErrorAs(t, err, &noCands)
	assert.Equal(t, "no retrieval candidates", err.Error())

	_, err = ranker.Rank([]Candidate{{Channel: ChannelImage, Similarity: math.NaN()}, {Channel: ChannelSpeech, Similarity: -0.3}})
	assert.ErrorAs(t, err, &noCands)
}

func TestParsePriority(t *testing.T) {
	got, err := ParsePriority([]string{" Caption", "speech"})
	require.NoError(t, err)
	assert.Equal(t, []Channel{ChannelCaption, ChannelSpeech}, got)

	got, err = ParsePriority(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPriority, got)

	_, err = ParsePriority([]string{"speech", "audio"})
	assert.Error(t, err)

	_, err = ParsePriority([]string{"speech", "SPEECH"})
	assert.Error(t, err)
}
