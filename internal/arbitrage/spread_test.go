package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDivergence(t *testing.T) {
	tests := []struct {
		name    string
		cexMid  string
		poolMid string
		wantBps string
	}{
		{"pool richer", "100", "101", "100"},
		{"pool cheaper", "100", "99.5", "-50"},
		{"aligned", "2500", "2500", "0"},
		{"dead cex mid", "0", "2500", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DivergenceBps(dec(tt.cexMid), dec(tt.poolMid))
			assert.True(t, got.Equal(dec(tt.wantBps)), "got %s want %s", got, tt.wantBps)
		})
	}
}
