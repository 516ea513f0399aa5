package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixupPlanMapRow(t *testing.T) {
	plan := FixupPlan{BlankRows: []int{14, 17, 20}}

	tests := []struct {
		row, want int
		kept      bool
	}{
		{5, 5, true},
		{13, 13, true},
		{14, 0, false},
		{15, 14, true},
		{18, 16, true},
		{20, 0, false},
		{21, 18, true},
		{27, 24, true},
		{30, 27, true},
		{31, 31, true},
		{40, 40, true},
	}
	for _, tt := range tests {
		got, ok := plan.MapRow(tt.row)
		assert.Equal(t, tt.kept, ok, "row %d", tt.row)
		if tt.kept {
			assert.Equal(t, tt.want, got, "row %d", tt.row)
		}
	}
}

func TestEmptyPlanIsIdentity(t *testing.T) {
	var plan FixupPlan
	for row := 1; row < 50; row++ {
		got, ok := plan.MapRow(row)
		assert.True(t, ok)
		assert.Equal(t, row, got)
	}
}
