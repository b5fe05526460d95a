package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryTracksBestMargin(t *testing.T) {
	s := NewSummary(time.Hour)
	s.Opportunity("ETH/USDC", dec("0.002"), dec("2.00"))
	s.Opportunity("LINK/USDT", dec("0.005"), dec("1.50"))
	s.Opportunity("UNI/USDT", dec("0.003"), dec("0.75"))

	snap := s.Snapshot()
	assert.EqualValues(t, 3, snap.Opportunities)
	assert.Equal(t, "LINK/USDT", snap.BestPair)
	assert.True(t, snap.BestMargin.Equal(dec("0.005")), "margin %s", snap.BestMargin)
	assert.True(t, snap.ProfitStable.Equal(dec("4.25")), "profit %s", snap.ProfitStable)
}

func TestSummaryRollsOverAfterInterval(t *testing.T) {
	s := NewSummary(30 * time.Millisecond)
	s.PairEvaluated()
	s.PairSkipped()
	s.Submitted()

	_, rolled := s.CycleDone()
	assert.False(t, rolled, "interval not elapsed yet")

	time.Sleep(40 * time.Millisecond)
	snap, rolled := s.CycleDone()
	require.True(t, rolled)
	assert.EqualValues(t, 2, snap.Cycles)
	assert.EqualValues(t, 1, snap.PairsEvaluated)
	assert.EqualValues(t, 1, snap.PairsSkipped)
	assert.EqualValues(t, 1, snap.Submitted)

	fresh := s.Snapshot()
	assert.EqualValues(t, 0, fresh.Cycles)
	assert.EqualValues(t, 0, fresh.PairsEvaluated)
	assert.True(t, fresh.WindowStart.After(snap.WindowStart))
}

func TestSummaryZeroIntervalNeverRolls(t *testing.T) {
	s := NewSummary(0)
	for i := 0; i < 5; i++ {
		_, rolled := s.CycleDone()
		assert.False(t, rolled)
	}
	assert.EqualValues(t, 5, s.Snapshot().Cycles)
}
