package service

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-engine/internal/domain"
)

func newTestRanker() *CandidateRanker {
	clock := func() time.Time { return evalNow }
	return NewCandidateRanker(NewCompatibilityEvaluator(clock), 4, clock)
}

func candidate(id string, interests ...string) domain.CanonicalRecord {
	return domain.CanonicalRecord{UserID: id, Qualities: domain.Qualities{Interests: interests}}
}

func rankedIDs(res domain.RankResult) []string {
	ids := make([]string, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		ids = append(ids, c.CandidateID)
	}
	return ids
}

func TestRank_ExcludesSwipedCandidates(t *testing.T) {
	requester := candidate("me", "a", "b", "c")
	pool := []domain.CanonicalRecord{
		candidate("c1", "a"),
		candidate("c2", "a", "b"),
		candidate("c3", "a", "b", "c"),
		candidate("c4", "b"),
		candidate("c5", "c"),
	}
	swiped := map[string]struct{}{"c2": {}, "c3": {}}

	res, err := newTestRanker().Rank(context.Background(), RankRequest{Requester: requester, Pool: pool, Swiped: swiped, Limit: 10})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(res.Candidates), 3)
	for _, id := range rankedIDs(res) {
		_, wasSwiped := swiped[id]
		assert.False(t, wasSwiped, "swiped candidate %s returned", id)
	}
	assert.Equal(t, 3, res.Evaluated)
	assert.Equal(t, 2, res.Excluded)
}

func TestRank_OrdersByOverallThenMentalThenID(t *testing.T) {
	requester := candidate("me", "a", "b", "c")
	pool := []domain.CanonicalRecord{
		candidate("zeta", "a"),
		candidate("alpha", "a"),
		candidate("best", "a", "b", "c"),
		candidate("mid", "a", "b"),
	}

	res, err := newTestRanker().Rank(context.Background(), RankRequest{Requester: requester, Pool: pool, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []string{"best", "mid", "alpha", "zeta"}, rankedIDs(res))
	for i, c := range res.Candidates {
		assert.Equal(t, i+1, c.Rank)
	}
}

func TestRank_IsStableAcrossRuns(t *testing.T) {
	requester := candidate("me", "a", "b")
	var pool []domain.CanonicalRecord
	for i := 0; i < 40; i++ {
		// Muchos empates exactos para forzar el desempate por ID.
		pool = append(pool, candidate(fmt.Sprintf("c%02d", 39-i), "a"))
	}
	ranker := newTestRanker()

	first, err := ranker.Rank(context.Background(), RankRequest{Requester: requester, Pool: pool, Limit: 15})
	require.NoError(t, err)
	for run := 0; run < 5; run++ {
		again, err := ranker.Rank(context.Background(), RankRequest{Requester: requester, Pool: pool, Limit: 15})
		require.NoError(t, err)
		if !reflect.DeepEqual(rankedIDs(first), rankedIDs(again)) {
			t.Fatalf("ranking changed between runs: %v vs %v", rankedIDs(first), rankedIDs(again))
		}
	}
	assert.Len(t, first.Candidates, 15)
	assert.Equal(t, "c00", first.Candidates[0].CandidateID)
}

func TestRank_AgeRangePrefilter(t *testing.T) {
	requester := candidate("me", "a")
	requester.Requirements.AgeRangeMin = intPtr(25)
	requester.Requirements.AgeRangeMax = intPtr(30)

	young := candidate("young", "a")
	young.Qualities.DateOfBirth = dob(2004, time.January, 1) // 21
	inRange := candidate("in-range", "a")
	inRange.Qualities.DateOfBirth = dob(1997, time.January, 1) // 28
	noDOB := candidate("no-dob", "a")

	res, err := newTestRanker().Rank(context.Background(), RankRequest{
		Requester: requester,
		Pool:      []domain.CanonicalRecord{young, inRange, noDOB},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"in-range", "no-dob"}, rankedIDs(res))
}

func TestRank_DropsSelfDuplicatesAndBlankIDs(t *testing.T) {
	requester := candidate("me", "a")
	pool := []domain.CanonicalRecord{
		candidate("me", "a"),
		candidate("", "a"),
		candidate("c1", "a"),
		candidate("c1", "a"),
	}

	res, err := newTestRanker().Rank(context.Background(), RankRequest{Requester: requester, Pool: pool})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, rankedIDs(res))
}

func TestRank_EmptyPoolReportsNoCandidates(t *testing.T) {
	requester := candidate("me", "a")

	res, err := newTestRanker().Rank(context.Background(), RankRequest{Requester: requester})
	require.NoError(t, err)
	assert.True(t, res.NoCandidates)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)

	res, err = newTestRanker().Rank(context.Background(), RankRequest{
		Requester: requester,
		Pool:      []domain.CanonicalRecord{candidate("c1", "a")},
		Swiped:    map[string]struct{}{"c1": {}},
	})
	require.NoError(t, err)
	assert.True(t, res.NoCandidates)
}

func TestRank_TruncatesAndFlagsDirectMessage(t *testing.T) {
	requester := domain.CanonicalRecord{
		UserID:    "me",
		Qualities: domain.Qualities{Height: intPtr(175), Interests: []string{"a", "b", "c", "d", "e"}, RelationshipGoals: []string{"marriage"}, Values: []string{"x", "y", "z"}},
	}
	perfect := domain.CanonicalRecord{
		UserID:    "perfect",
		Qualities: domain.Qualities{Height: intPtr(175), Interests: []string{"a", "b", "c", "d", "e"}, RelationshipGoals: []string{"marriage"}, Values: []string{"x", "y", "z"}},
	}
	weak := candidate("weak", "a")

	ranker := newTestRanker().WithChatGate(NewChatGate(80))
	res, err := ranker.Rank(context.Background(), RankRequest{
		Requester: requester,
		Pool:      []domain.CanonicalRecord{weak, perfect},
		Limit:     1,
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "perfect", res.Candidates[0].CandidateID)
	assert.True(t, res.Candidates[0].CanMessageDirectly)
	assert.Equal(t, 2, res.Evaluated)
}

func TestRank_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRanker().Rank(ctx, RankRequest{Requester: candidate("me", "a"), Pool: []domain.CanonicalRecord{candidate("c1", "a")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChatGate(t *testing.T) {
	gate := NewChatGate(80)
	assert.False(t, gate.CanMessageDirectly(80))
	assert.True(t, gate.CanMessageDirectly(81))
	assert.Equal(t, 80, NewChatGate(-5).Threshold())
}
