package rundown

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGroup() Group {
	return Group{
		ID: "group-1",
		Parts: []Part{
			{ID: "a", Duration: Ms(1000)},
			{ID: "b", Duration: Ms(2000), Disabled: true},
			{ID: "c", Duration: Ms(3000)},
			{ID: "d", Duration: nil},
		},
	}
}

func TestGroup_NextPlayableIndex(t *testing.T) {
	g := testGroup()

	tests := []struct {
		name     string
		from     int
		wrap     bool
		expected int
	}{
		{name: "from start", from: -1, expected: 0},
		{name: "skips disabled", from: 0, expected: 2},
		{name: "last without wrap", from: 3, expected: -1},
		{name: "last with wrap", from: 3, wrap: true, expected: 0},
		{name: "middle", from: 2, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.NextPlayableIndex(tt.from, tt.wrap))
		})
	}
}

func TestGroup_PrevPlayableIndex(t *testing.T) {
	g := testGroup()

	tests := []struct {
		name     string
		from     int
		wrap     bool
		expected int
	}{
		{name: "from end", from: 4, expected: 3},
		{name: "skips disabled", from: 2, expected: 0},
		{name: "first without wrap", from: 0, expected: -1},
		{name: "first with wrap", from: 0, wrap: true, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.PrevPlayableIndex(tt.from, tt.wrap))
		})
	}
}

func TestGroup_NextPlayableIndex_SinglePartWraps(t *testing.T) {
	g := Group{Parts: []Part{{ID: "a"}, {ID: "b", Disabled: true}}}

	assert.Equal(t, 0, g.NextPlayableIndex(0, true))
	assert.Equal(t, -1, g.NextPlayableIndex(0, false))
}

func TestGroup_Part(t *testing.T) {
	g := testGroup()

	p, err := g.Part("c")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), *p.Duration)

	_, err = g.Part("missing")
	assert.True(t, errors.Is(err, ErrPartNotFound))
}

func TestGroup_Clone(t *testing.T) {
	g := testGroup()
	g.Playout = Playout{PlayingParts: map[string]PlayingPart{
		"a": {StartTime: 1000, PauseTime: Ms(10)},
	}}

	c := g.Clone()
	*c.Parts[0].Duration = 5
	*c.Playout.PlayingParts["a"].PauseTime = 99
	c.Playout.PlayingParts["c"] = PlayingPart{StartTime: 1}

	assert.Equal(t, int64(1000), *g.Parts[0].Duration)
	assert.Equal(t, int64(10), *g.Playout.PlayingParts["a"].PauseTime)
	assert.Len(t, g.Playout.PlayingParts, 1)
}

func TestGroup_PlayingEntries(t *testing.T) {
	g := testGroup()
	g.Playout = Playout{PlayingParts: map[string]PlayingPart{
		"c":     {StartTime: 2},
		"a":     {StartTime: 1},
		"ghost": {StartTime: 3},
	}}

	entries := g.PlayingEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Part.ID)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, "c", entries[1].Part.ID)
	assert.Equal(t, 2, entries[1].Index)
}

func TestPlayingPart_State(t *testing.T) {
	pp := PlayingPart{StartTime: 1000}
	assert.False(t, pp.IsPaused())
	assert.False(t, pp.IsStopped(5000))
	assert.Equal(t, int64(500), pp.Playhead(1500))

	pp.PauseTime = Ms(200)
	assert.True(t, pp.IsPaused())
	assert.Equal(t, int64(200), pp.Playhead(9000))

	pp.StopTime = Ms(3000)
	assert.False(t, pp.IsStopped(2999))
	assert.True(t, pp.IsStopped(3000))
}
