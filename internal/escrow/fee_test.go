package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		percent int
		want    int64
	}{
		{"standard rate", 10000, 15, 1500},
		{"rounds down", 101, 15, 15},
		{"rounds down small", 7, 15, 1},
		{"one yen", 1, 15, 0},
		{"zero amount", 0, 15, 0},
		{"negative amount", -100, 15, 0},
		{"zero percent", 10000, 0, 0},
		{"full percent", 10000, 100, 10000},
		{"large amount", 1_000_000_000, 15, 150_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeFee(tt.amount, tt.percent))
		})
	}
}
