package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/commpolls/backend/internal/models"
	"github.com/emilythestrangee/commpolls/backend/internal/notify"
	"github.com/emilythestrangee/commpolls/backend/internal/testutil"
)

func newTestServices(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return New(db, notify.LogNotifier{}), db
}

func choiceCount(t *testing.T, db *gorm.DB, choiceID int) int {
	t.Helper()
	var c models.Choice
	require.NoError(t, db.First(&c, choiceID).Error)
	return c.VotesCount
}

func TestCastVote(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()

	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)
	poll := testutil.ActivePoll(t, db, manager, "A", "B")

	vote, err := svc.Voting.CastVote(ctx, poll.ID, voter, poll.Choices[0].ID)
	require.NoError(t, err)

	assert.Equal(t, poll.ID, vote.PollID)
	assert.Equal(t, voter.ID, vote.VoterID)
	assert.Equal(t, poll.Choices[0].ID, vote.ChoiceID)
	assert.Equal(t, 1, choiceCount(t, db, poll.Choices[0].ID))
	assert.Equal(t, 0, choiceCount(t, db, poll.Choices[1].ID))
	assert.EqualValues(t, 1, testutil.CountVotes(t, db, poll.ID))
}

func TestCastVoteBeforeStart(t *testing.T) {
	svc, db := newTestServices(t)
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)

	now := time.Now()
	poll := testutil.CreateTestPoll(t, db, manager, now.Add(time.Hour), now.Add(2*time.Hour), "A", "B")

	_, err := svc.Voting.CastVote(context.Background(), poll.ID, voter, poll.Choices[0].ID)
	assert.ErrorIs(t, err, ErrPollNotStarted)
	assert.EqualValues(t, 0, testutil.CountVotes(t, db, poll.ID))
	assert.Equal(t, 0, choiceCount(t, db, poll.Choices[0].ID))
}

func TestCastVoteAfterEnd(t *testing.T) {
	svc, db := newTestServices(t)
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)

	now := time.Now()
	poll := testutil.CreateTestPoll(t, db, manager, now.Add(-2*time.Hour), now.Add(-time.Hour), "A", "B")

	_, err := svc.Voting.CastVote(context.Background(), poll.ID, voter, poll.Choices[0].ID)
	assert.ErrorIs(t, err, ErrPollClosed)
	assert.EqualValues(t, 0, testutil.CountVotes(t, db, poll.ID))
}

func TestCastVoteTwice(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)
	poll := testutil.ActivePoll(t, db, manager, "A", "B")

	_, err := svc.Voting.CastVote(ctx, poll.ID, voter, poll.Choices[0].ID)
	require.NoError(t, err)

	_, err = svc.Voting.CastVote(ctx, poll.ID, voter, poll.Choices[1].ID)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Equal(t, KindConflict, KindOf(err))

	assert.Equal(t, 1, choiceCount(t, db, poll.Choices[0].ID))
	assert.Equal(t, 0, choiceCount(t, db, poll.Choices[1].ID))
	assert.EqualValues(t, 1, testutil.CountVotes(t, db, poll.ID))
}

func TestCastVoteInvalidChoice(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)
	poll := testutil.ActivePoll(t, db, manager, "A", "B")
	other := testutil.ActivePoll(t, db, manager, "X", "Y")

	for name, choiceID := range map[string]int{
		"missing selection":    0,
		"unknown id":           99999,
		"choice of other poll": other.Choices[0].ID,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Voting.CastVote(ctx, poll.ID, voter, choiceID)
			assert.ErrorIs(t, err, ErrInvalidChoice)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}

	assert.EqualValues(t, 0, testutil.CountVotes(t, db, poll.ID))
	assert.Equal(t, 0, choiceCount(t, db, other.Choices[0].ID))
}

func TestCastVoteUnknownPoll(t *testing.T) {
	svc, db := newTestServices(t)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)

	_, err := svc.Voting.CastVote(context.Background(), 12345, voter, 1)
	assert.Equal(t, KindNotFound, KindOf(err))
}

// TestConcurrentDoubleVote fires the same voter's ballot from many goroutines at once;
// exactly one may land.
func TestConcurrentDoubleVote(t *testing.T) {
	svc, db := newTestServices(t)
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)
	poll := testutil.ActivePoll(t, db, manager, "A", "B")

	const attempts = 8
	var successes, alreadyVoted atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Voting.CastVote(context.Background(), poll.ID, voter, poll.Choices[0].ID)
			switch {
			case err == nil:
				successes.Add(1)
			case err == ErrAlreadyVoted:
				alreadyVoted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, attempts-1, alreadyVoted.Load())
	assert.EqualValues(t, 1, testutil.CountVotes(t, db, poll.ID))
	assert.Equal(t, 1, choiceCount(t, db, poll.Choices[0].ID))
}

func TestCountersMatchVoteRows(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	poll := testutil.ActivePoll(t, db, manager, "A", "B", "C")

	for i := 0; i < 12; i++ {
		voter := testutil.CreateTestUser(t, db, "voter"+string(rune('a'+i)), models.RoleUser)
		choice := poll.Choices[i%len(poll.Choices)].ID

		_, err := svc.Voting.CastVote(ctx, poll.ID, voter, choice)
		require.NoError(t, err)

		// rejected attempts must not move anything
		_, err = svc.Voting.CastVote(ctx, poll.ID, voter, choice)
		require.ErrorIs(t, err, ErrAlreadyVoted)
		_, err = svc.Voting.CastVote(ctx, poll.ID, voter, 0)
		require.Error(t, err)
	}

	assert.EqualValues(t, 12, testutil.CountVotes(t, db, poll.ID))
	assert.Equal(t, testutil.CountVotes(t, db, poll.ID), testutil.SumVotesCount(t, db, poll.ID))
	for _, c := range poll.Choices {
		assert.Equal(t, 4, choiceCount(t, db, c.ID))
	}
}

func TestVotesByVoterAndVoterVote(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)
	p1 := testutil.ActivePoll(t, db, manager, "A", "B")
	p2 := testutil.ActivePoll(t, db, manager, "C", "D")

	none, err := svc.Voting.VoterVote(ctx, p1.ID, voter.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = svc.Voting.CastVote(ctx, p1.ID, voter, p1.Choices[1].ID)
	require.NoError(t, err)
	_, err = svc.Voting.CastVote(ctx, p2.ID, voter, p2.Choices[0].ID)
	require.NoError(t, err)

	got, err := svc.Voting.VoterVote(ctx, p1.ID, voter.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Choice)
	assert.Equal(t, "B", got.Choice.Name)

	votes, err := svc.Voting.VotesByVoter(ctx, voter.ID)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	for _, v := range votes {
		require.NotNil(t, v.Poll)
		assert.Len(t, v.Poll.Choices, 2)
		require.NotNil(t, v.Choice)
	}
}

func TestCountdown(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)

	now := time.Now()
	future := testutil.CreateTestPoll(t, db, manager, now.Add(3*time.Hour), now.Add(4*time.Hour), "A", "B")
	cd, err := svc.Voting.Countdown(ctx, future.ID)
	require.NoError(t, err)
	assert.False(t, cd.HasStarted)
	assert.InDelta(t, 3*3600, cd.SecondsRemaining, 5)
	assert.Contains(t, cd.StartsIn, "from now")

	open := testutil.ActivePoll(t, db, manager, "A", "B")
	cd, err = svc.Voting.Countdown(ctx, open.ID)
	require.NoError(t, err)
	assert.True(t, cd.HasStarted)
	assert.Zero(t, cd.SecondsRemaining)
}
