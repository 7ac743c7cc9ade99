package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRankingOrdering(t *testing.T) {
	r := NewRankings()
	camp := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	r.Update(camp, a, dec("300"), dec("100"), 1)
	r.Update(camp, b, dec("100"), dec("50"), 1)
	r.Update(camp, c, dec("200"), dec("75"), 1)

	top := r.TopK(camp, 3)
	require.Len(t, top, 3)
	require.Equal(t, a, top[0].BidderID)
	require.Equal(t, c, top[1].BidderID)
	require.Equal(t, b, top[2].BidderID)
	require.Equal(t, 1, top[0].Rank)
	require.Equal(t, 3, top[2].Rank)

	rank, ok := r.RankOf(camp, c)
	require.True(t, ok)
	require.Equal(t, 2, rank)
	require.Equal(t, 3, r.Size(camp))
}

func TestRankingUpdateReplacesEntry(t *testing.T) {
	r := NewRankings()
	camp := uuid.New()
	a, b := uuid.New(), uuid.New()

	r.Update(camp, a, dec("100"), dec("10"), 1)
	r.Update(camp, b, dec("200"), dec("20"), 1)
	// resubmission overtakes b, size stays 2
	r.Update(camp, a, dec("300"), dec("30"), 2)

	require.Equal(t, 2, r.Size(camp))
	rank, ok := r.RankOf(camp, a)
	require.True(t, ok)
	require.Equal(t, 1, rank)

	top := r.TopK(camp, 10)
	require.Len(t, top, 2)
	require.True(t, top[0].Score.Equal(dec("300")))
	require.True(t, top[0].Price.Equal(dec("30")), "old price must not survive the overwrite")
}

func TestRankingTieBreakByInsertionOrder(t *testing.T) {
	r := NewRankings()
	camp := uuid.New()
	first, second, third := uuid.New(), uuid.New(), uuid.New()

	r.Update(camp, first, dec("100"), dec("10"), 1)
	r.Update(camp, second, dec("100"), dec("10"), 1)
	r.Update(camp, third, dec("100"), dec("10"), 1)

	top := r.TopK(camp, 3)
	require.Equal(t, []uuid.UUID{first, second, third},
		[]uuid.UUID{top[0].BidderID, top[1].BidderID, top[2].BidderID})

	// a resubmission at the same score keeps the original order
	r.Update(camp, second, dec("100"), dec("10"), 2)
	top = r.TopK(camp, 3)
	require.Equal(t, second, top[1].BidderID)
}

// Two resubmissions racing through the ledger can reach the index in the
// opposite commit order; the one with the lower submission count must lose
// regardless of arrival order.
func TestRankingStaleUpdateIgnored(t *testing.T) {
	r := NewRankings()
	camp := uuid.New()
	a := uuid.New()

	r.Update(camp, a, dec("200"), dec("20"), 2)
	r.Update(camp, a, dec("100"), dec("10"), 1)

	top := r.TopK(camp, 1)
	require.Len(t, top, 1)
	require.True(t, top[0].Score.Equal(dec("200")), "stale score must not overwrite the newer one")
	require.True(t, top[0].Price.Equal(dec("20")))
	require.Equal(t, 1, r.Size(camp))

	// equal counts are also stale (at-most-once application per commit)
	r.Update(camp, a, dec("50"), dec("5"), 2)
	top = r.TopK(camp, 1)
	require.True(t, top[0].Score.Equal(dec("200")))
}

func TestRankingUnranked(t *testing.T) {
	r := NewRankings()
	camp := uuid.New()
	_, ok := r.RankOf(camp, uuid.New())
	require.False(t, ok)
	require.Empty(t, r.TopK(camp, 5))
	require.Equal(t, 0, r.Size(camp))
}

func TestRankingStats(t *testing.T) {
	r := NewRankings()
	camp := uuid.New()

	st := r.Stats(camp, 2)
	require.Zero(t, st.TotalParticipants)
	require.Nil(t, st.MaxScore)
	require.Nil(t, st.MinWinningScore)

	r.Update(camp, uuid.New(), dec("300"), dec("1"), 1)
	st = r.Stats(camp, 2)
	require.Equal(t, 1, st.TotalParticipants)
	require.True(t, st.MaxScore.Equal(dec("300")))
	require.Nil(t, st.MinWinningScore, "fewer participants than quota")

	r.Update(camp, uuid.New(), dec("200"), dec("1"), 1)
	r.Update(camp, uuid.New(), dec("100"), dec("1"), 1)
	st = r.Stats(camp, 2)
	require.Equal(t, 3, st.TotalParticipants)
	require.True(t, st.MaxScore.Equal(dec("300")))
	require.True(t, st.MinWinningScore.Equal(dec("200")))
}

func TestRankingTopKLargerThanSize(t *testing.T) {
	r := NewRankings()
	camp := uuid.New()
	r.Update(camp, uuid.New(), dec("1"), dec("1"), 1)
	require.Len(t, r.TopK(camp, 100), 1)
}

func TestRankingConcurrentUpdates(t *testing.T) {
	r := NewRankings()
	camp := uuid.New()

	const bidders = 50
	const rounds = 20
	ids := make([]uuid.UUID, bidders)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			for round := 0; round < rounds; round++ {
				score := dec(fmt.Sprintf("%d.%04d", round*100+i, i))
				r.Update(camp, id, score, dec("10"), round+1)
				r.RankOf(camp, id)
				r.TopK(camp, 10)
			}
		}(i, id)
	}
	wg.Wait()

	require.Equal(t, bidders, r.Size(camp))
	top := r.TopK(camp, bidders)
	require.Len(t, top, bidders)
	for i := 1; i < len(top); i++ {
		c := top[i-1].Score.Cmp(top[i].Score)
		require.GreaterOrEqual(t, c, 0, "top-K must be non-increasing")
	}
}
