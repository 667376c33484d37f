package games

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"casino_engine/internal/fair"
)

const (
	simServerSeed = "9d2e4f70a1b2c3d4e5f60718293a4b5c6d7e8f901a2b3c4d5e6f70811f8b3a6c"
	simClientSeed = "rtpsimulation1"
)

func newTestStream(t *testing.T, nonce uint64) *fair.Stream {
	t.Helper()
	s, err := fair.NewStream(simServerSeed, simClientSeed, nonce)
	require.NoError(t, err)
	return s
}

func TestThresholdEvenMoneyMultiplier(t *testing.T) {
	// winProbability=0.5, houseEdge=0.01 must give ~1.98.
	p := &ThresholdParams{Target: 500000, Direction: "under"}
	require.InDelta(t, 1.98, ThresholdMultiplier(thresholdWinProbability(p)), 1e-9)
}

func TestThresholdWinDetermination(t *testing.T) {
	bet := decimal.NewFromInt(10)
	p := Params{Threshold: &ThresholdParams{Target: 500000, Direction: "under"}}

	out, err := Resolve(GameThreshold, p, bet, newTestStream(t, 1))
	require.NoError(t, err)
	result := out.Result.(ThresholdResult)
	require.Equal(t, result.Roll < 500000, out.IsWin)
	require.Equal(t, 1, out.DrawsUsed)

	if out.IsWin {
		require.InDelta(t, 1.98, out.Multiplier, 1e-9)
		require.True(t, out.WinAmount.Equal(decimal.NewFromFloat(19.8)))
	} else {
		require.True(t, out.WinAmount.IsZero())
	}
}

func TestThresholdOverDirectionMirrors(t *testing.T) {
	bet := decimal.NewFromInt(1)
	under := Params{Threshold: &ThresholdParams{Target: 300000, Direction: "under"}}
	over := Params{Threshold: &ThresholdParams{Target: 300000, Direction: "over"}}

	u, err := Resolve(GameThreshold, under, bet, newTestStream(t, 2))
	require.NoError(t, err)
	o, err := Resolve(GameThreshold, over, bet, newTestStream(t, 2))
	require.NoError(t, err)

	// Same stream position, same roll, complementary comparisons.
	require.Equal(t, u.Result.(ThresholdResult).Roll, o.Result.(ThresholdResult).Roll)
	if u.Result.(ThresholdResult).Roll != 300000 {
		require.NotEqual(t, u.IsWin, o.IsWin)
	}
}

func TestThresholdRejectsBadParams(t *testing.T) {
	bet := decimal.NewFromInt(1)

	_, err := Resolve(GameThreshold, Params{}, bet, newTestStream(t, 0))
	require.ErrorIs(t, err, ErrMissingParams)

	_, err = Resolve(GameThreshold, Params{Threshold: &ThresholdParams{Target: 5, Direction: "under"}}, bet, newTestStream(t, 0))
	require.Error(t, err)

	_, err = Resolve(GameThreshold, Params{Threshold: &ThresholdParams{Target: 500000, Direction: "sideways"}}, bet, newTestStream(t, 0))
	require.Error(t, err)

	_, err = Resolve(GameThreshold, Params{Threshold: &ThresholdParams{Target: 500000, Direction: "under"}}, decimal.Zero, newTestStream(t, 0))
	require.ErrorIs(t, err, ErrInvalidBet)
}

func TestThresholdRTPConvergence(t *testing.T) {
	if testing.Short() {
		t.Skip("rtp simulation")
	}

	const rounds = 1_000_000
	bet := decimal.NewFromInt(1)
	p := Params{Threshold: &ThresholdParams{Target: 500000, Direction: "under"}}

	paid := 0.0
	for nonce := uint64(0); nonce < rounds; nonce++ {
		out, err := Resolve(GameThreshold, p, bet, newTestStream(t, nonce))
		require.NoError(t, err)
		if out.IsWin {
			paid += out.Multiplier
		}
	}

	require.InDelta(t, TargetRTP, paid/rounds, 0.02)
}
