package priority_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priority-todo-backend/internal/priority"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		importance int
		urgency    int
		expected   float64
	}{
		{"critical everything", 4, 4, 4.0},
		{"high importance medium urgency", 3, 2, 2.6},
		{"medium importance high urgency", 2, 3, 2.4},
		{"defaults", 2, 2, 2.0},
		{"low everything", 1, 1, 1.0},
		{"critical importance low urgency", 4, 1, 2.8},
		{"low importance critical urgency", 1, 4, 2.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := priority.Score(tt.importance, tt.urgency)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, score)
		})
	}
}

func TestScore_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name       string
		importance int
		urgency    int
	}{
		{"importance zero", 0, 2},
		{"importance five", 5, 2},
		{"urgency zero", 2, 0},
		{"urgency negative", 2, -1},
		{"urgency ten", 2, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := priority.Score(tt.importance, tt.urgency)
			require.Error(t, err)
			assert.ErrorIs(t, err, priority.ErrInvalidLevel)
		})
	}
}

func TestScore_IsDeterministicAndConsistentWithWeights(t *testing.T) {
	type pair struct{ i, u int }
	var pairs []pair
	for i := 1; i <= 4; i++ {
		for u := 1; u <= 4; u++ {
			pairs = append(pairs, pair{i, u})
		}
	}

	for _, p := range pairs {
		first, err := priority.Score(p.i, p.u)
		require.NoError(t, err)
		second, err := priority.Score(p.i, p.u)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}

	byScore := append([]pair(nil), pairs...)
	sort.SliceStable(byScore, func(a, b int) bool {
		sa, _ := priority.Score(byScore[a].i, byScore[a].u)
		sb, _ := priority.Score(byScore[b].i, byScore[b].u)
		return sa > sb
	})
	byWeight := append([]pair(nil), pairs...)
	sort.SliceStable(byWeight, func(a, b int) bool {
		return 6*byWeight[a].i+4*byWeight[a].u > 6*byWeight[b].i+4*byWeight[b].u
	})
	assert.Equal(t, byWeight, byScore)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		level    int
		expected string
	}{
		{1, "Low"},
		{2, "Medium"},
		{3, "High"},
		{4, "Critical"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			label, err := priority.Label(tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, label)
		})
	}

	_, err := priority.Label(0)
	assert.ErrorIs(t, err, priority.ErrInvalidLevel)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "High", priority.High.String())
	assert.Equal(t, "Unknown", priority.Level(9).String())
	assert.Equal(t, priority.Medium, priority.Default)
}

func TestIcons(t *testing.T) {
	importance, err := priority.ImportanceIcon(3)
	require.NoError(t, err)
	assert.Contains(t, importance, "<svg")
	assert.Contains(t, importance, "<rect")
	assert.Contains(t, importance, "#F44336")

	urgency, err := priority.UrgencyIcon(2)
	require.NoError(t, err)
	assert.Contains(t, urgency, "<svg")
	assert.Contains(t, urgency, "<polygon")
	assert.Contains(t, urgency, "#FF7811")

	again, err := priority.UrgencyIcon(2)
	require.NoError(t, err)
	assert.Equal(t, urgency, again)

	_, err = priority.ImportanceIcon(5)
	assert.ErrorIs(t, err, priority.ErrInvalidLevel)
	_, err = priority.UrgencyIcon(0)
	assert.ErrorIs(t, err, priority.ErrInvalidLevel)
}
