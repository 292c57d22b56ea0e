package domain

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTradeLogged_Counts(t *testing.T) {
	c := Counters{}
	c = ApplyTradeLogged(c, ResultWin)
	c = ApplyTradeLogged(c, ResultLoss)
	c = ApplyTradeLogged(c, ResultDraw)

	assert.Equal(t, Counters{Wins: 1, Losses: 1, Trades: 3, WinRate: 33}, c)
	assert.Equal(t, 1, c.Draws())
}

func TestApplyTradeDeleted_InverseOfLogged(t *testing.T) {
	base := Counters{Wins: 4, Losses: 2, Trades: 7, WinRate: WinRate(4, 7)}
	for _, r := range []TradeResult{ResultWin, ResultLoss, ResultDraw} {
		out := ApplyTradeDeleted(ApplyTradeLogged(base, r), r)
		assert.Equal(t, base, out.Counters, "result %s", r)
		assert.False(t, out.Clamped)
		assert.False(t, out.Emptied)
	}
}

func TestApplyTradeDeleted_FloorAtZero(t *testing.T) {
	out := ApplyTradeDeleted(Counters{}, ResultWin)
	assert.Equal(t, Counters{}, out.Counters)
	assert.True(t, out.Clamped)
	assert.False(t, out.Emptied, "an already empty session is not emptied again")
}

func TestApplyTradeDeleted_DuplicateDeleteKeepsInvariant(t *testing.T) {
	// 1 win + 1 loss; the loss delete arrives twice.
	c := Counters{Wins: 1, Losses: 1, Trades: 2, WinRate: 50}
	first := ApplyTradeDeleted(c, ResultLoss)
	second := ApplyTradeDeleted(first.Counters, ResultLoss)

	assert.True(t, second.Clamped)
	assert.LessOrEqual(t, second.Counters.Wins+second.Counters.Losses, second.Counters.Trades)
	assert.Equal(t, 0, second.Counters.Losses)
}

func TestApplyTradeDeleted_LastTradeEmpties(t *testing.T) {
	c := ApplyTradeLogged(Counters{}, ResultWin)
	out := ApplyTradeDeleted(c, ResultWin)
	assert.True(t, out.Emptied)
	assert.Equal(t, Counters{}, out.Counters)
	assert.Equal(t, SessionEmpty, Session{Counters: out.Counters}.State())
}

func TestLedger_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	results := []TradeResult{ResultWin, ResultLoss, ResultDraw}

	for run := 0; run < 200; run++ {
		c := Counters{}
		for step := 0; step < 50; step++ {
			r := results[rng.Intn(len(results))]
			if rng.Intn(3) == 0 {
				c = ApplyTradeDeleted(c, r).Counters
			} else {
				c = ApplyTradeLogged(c, r)
			}
			require.GreaterOrEqual(t, c.Wins, 0)
			require.GreaterOrEqual(t, c.Losses, 0)
			require.LessOrEqual(t, c.Wins+c.Losses, c.Trades)
			require.GreaterOrEqual(t, c.WinRate, 0)
			require.LessOrEqual(t, c.WinRate, 100)
			if c.Trades == 0 {
				require.Equal(t, 0, c.WinRate)
			}
		}
	}
}

func TestLedger_SessionScenario(t *testing.T) {
	s := Session{ID: "s1", StartingBalance: decimal.NewNullDecimal(decimal.NewFromInt(1000))}
	for _, r := range []TradeResult{ResultWin, ResultWin, ResultWin, ResultLoss, ResultLoss} {
		s.Counters = ApplyTradeLogged(s.Counters, r)
	}
	assert.Equal(t, 5, s.Trades)
	assert.Equal(t, 60, s.WinRate)

	out := ApplyTradeDeleted(s.Counters, ResultLoss)
	s.Counters = out.Counters
	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 75, s.WinRate)

	require.NoError(t, ValidateEnd(s))
	s.ClosingBalance = decimal.NewNullDecimal(decimal.NewFromInt(1200))
	earnings, ok := s.Earnings()
	require.True(t, ok)
	assert.Equal(t, "200.00", earnings.StringFixed(2))
	assert.Equal(t, SessionEnded, s.State())
}

func TestValidateEnd_ZeroTradesRejected(t *testing.T) {
	err := ValidateEnd(Session{ID: "s1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestValidateEnd_AlreadyEnded(t *testing.T) {
	s := Session{ID: "s1", Counters: Counters{Trades: 1}, ClosingBalance: decimal.NewNullDecimal(decimal.Zero)}
	assert.ErrorIs(t, ValidateEnd(s), ErrValidation)
	assert.ErrorIs(t, CanLog(s), ErrValidation)
}

func TestWinRate_Bounds(t *testing.T) {
	assert.Equal(t, 0, WinRate(0, 0))
	assert.Equal(t, 0, WinRate(3, 0))
	assert.Equal(t, 67, WinRate(2, 3))
	assert.Equal(t, 100, WinRate(5, 5))
}

func TestParseBalance(t *testing.T) {
	b, err := ParseBalance("1000.456")
	require.NoError(t, err)
	assert.True(t, b.Valid)
	assert.Equal(t, "1000.46", b.Decimal.StringFixed(2))

	empty, err := ParseBalance("")
	require.NoError(t, err)
	assert.False(t, empty.Valid)

	_, err = ParseBalance("abc")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewTrade_Validation(t *testing.T) {
	_, err := NewTrade("s1", testNow, nil, ResultWin, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewTrade("s1", testNow, []string{"trend"}, TradeResult("maybe"), nil)
	assert.ErrorIs(t, err, ErrValidation)

	tr, err := NewTrade("s1", testNow, []string{" trend ", "", "volume"}, ResultWin, []string{"late"})
	require.NoError(t, err)
	assert.Equal(t, []string{"trend", "volume"}, tr.Confirmations)
	assert.Nil(t, tr.LossReasons, "loss reasons only apply to losses")

	loss, err := NewTrade("s1", testNow, []string{"trend"}, ResultLoss, []string{"late"})
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, loss.LossReasons)
}
