// Package search answers clip and question requests over an indexed video.
package search

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Channel names a retrieval channel
type Channel string

const (
	ChannelSpeech  Channel = "speech"
	ChannelCaption Channel = "caption"
	ChannelImage   Channel = "image"
)

// DefaultPriority breaks similarity ties: speech, then caption, then image
var DefaultPriority = []Channel{ChannelSpeech, ChannelCaption, ChannelImage}

// ParseChannel resolves a channel name case-insensitively
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelSpeech, ChannelCaption, ChannelImage:
		return c, nil
	default:
		return "", fmt.Errorf("unknown retrieval channel %q", s)
	}
}

// ParsePriority converts configured channel names, rejecting duplicates
func ParsePriority(names []string) ([]Channel, error) {
	if len(names) == 0 {
		return DefaultPriority, nil
	}
	out := make([]Channel, 0, len(names))
	for _, n := range names {
		c, err := ParseChannel(n)
		if err != nil {
			return nil, err
		}
		if lo.Contains(out, c) {
			return nil, fmt.Errorf("duplicate retrieval channel %q", c)
		}
		out = append(out, c)
	}
	return out, nil
}

// Candidate is a similarity hit translated into a clip time range.
// Similarity is on the shared [0, 1] scale.
type Candidate struct {
	Channel    Channel
	StartTime  float64
	EndTime    float64
	Similarity float64
	ItemID     string
	Text       string
}

// NoCandidatesError means no channel produced a positive-similarity candidate
type NoCandidatesError struct {
	Channels []Channel
}

func (e *NoCandidatesError) Error() string {
	if len(e.Channels) == 0 {
		return "no retrieval candidates"
	}
	names := lo.Map(e.Channels, func(c Channel, _ int) string { return string(c) })
	return fmt.Sprintf("no retrieval candidates from channels [%s]", strings.Join(names, ", "))
}

// Ranker picks the winning channel among per-channel candidates
type Ranker struct {
	Priority []Channel
}

// NewRanker creates a ranker; an empty priority uses DefaultPriority
func NewRanker(priority []Channel) Ranker {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	return Ranker{Priority: priority}
}

// Rank returns the candidate with the strictly greatest similarity.
// A channel without candidates counts as similarity 0 and never wins, and
// equal similarities resolve to the earlier channel in Priority. Channels missing
// from Priority rank after every listed channel, ordered by name.
func (r Ranker) Rank(candidates []Candidate) (Candidate, error) {
	best := make(map[Channel]Candidate)
	for _, c := range candidates {
		if math.IsNaN(c.Similarity) || c.Similarity <= 0 {
			continue
		}
		if cur, ok := best[c.Channel]; !ok || c.Similarity > cur.Similarity {
			best[c.Channel] = c
		}
	}

	if len(best) == 0 {
		channels := lo.Uniq(lo.Map(candidates, func(c Candidate, _ int) Channel { return c.Channel }))
		return Candidate{}, &NoCandidatesError{Channels: channels}
	}

	order := r.order(lo.Keys(best))
	winner := best[order[0]]
	for _, ch := range order[1:] {
		if c := best[ch]; c.Similarity > winner.Similarity {
			winner = c
		}
	}
	return winner, nil
}

// order sorts channels by priority rank
func (r Ranker) order(channels []Channel) []Channel {
	priority := r.Priority
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	rank := func(c Channel) int {
		if i := lo.IndexOf(priority, c); i >= 0 {
			return i
		}
		return len(priority)
	}
	sort.Slice(channels, func(i, j int) bool {
		ri, rj := rank(channels[i]), rank(channels[j])
		if ri != rj {
			return ri < rj
		}
		return channels[i] < channels[j]
	})
	return channels
}
