package components

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestSparkline_WindowAndMax(t *testing.T) {
	s := NewSparkline(3, "fails", lipgloss.NewStyle())
	for _, v := range []uint64{9, 1, 2, 4} {
		s.Add(v)
	}
	assert.Equal(t, []uint64{1, 2, 4}, s.Data)
	assert.Equal(t, uint64(4), s.Max)
}

func TestSparkline_View(t *testing.T) {
	s := NewSparkline(4, "fails", lipgloss.NewStyle())
	s.Add(0)
	s.Add(8)
	assert.Equal(t, 0, s.level(0))
	assert.Equal(t, len(levels)-1, s.level(8))
	assert.Contains(t, s.View(), "fails\n")
	assert.Contains(t, s.View(), "█")

	assert.Empty(t, Sparkline{}.View())
}
