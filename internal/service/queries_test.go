package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/commpolls/backend/internal/models"
	"github.com/emilythestrangee/commpolls/backend/internal/testutil"
)

func pollIDs(views []models.PollView) []int {
	ids := make([]int, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestListPollsFilters(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	now := time.Now()

	alice := testutil.CreateTestUser(t, db, "alice", models.RoleManager)
	bob := testutil.CreateTestUser(t, db, "bob_smith", models.RoleManager)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)

	ongoing := testutil.ActivePoll(t, db, alice, "A", "B")
	ended := testutil.CreateTestPoll(t, db, alice, now.Add(-2*time.Hour), now.Add(-time.Hour), "A", "B")
	future := testutil.CreateTestPoll(t, db, bob, now.Add(time.Hour), now.Add(2*time.Hour), "A", "B")

	_, err := svc.Voting.CastVote(ctx, ongoing.ID, voter, ongoing.Choices[0].ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter PollFilter
		caller *models.User
		want   []int
	}{
		{"no filter", PollFilter{}, nil, []int{ongoing.ID, ended.ID, future.ID}},
		{"creator substring", PollFilter{CreatorName: "ALI"}, nil, []int{ongoing.ID, ended.ID}},
		{"creator underscore is literal", PollFilter{CreatorName: "b_s"}, nil, []int{future.ID}},
		{"creator percent is literal", PollFilter{CreatorName: "%"}, nil, []int{}},
		{"ongoing", PollFilter{PollStatus: "ongoing"}, nil, []int{ongoing.ID}},
		{"ended", PollFilter{PollStatus: "ended"}, nil, []int{ended.ID}},
		{"not started", PollFilter{PollStatus: "not_started"}, nil, []int{future.ID}},
		{"unknown status ignored", PollFilter{PollStatus: "bogus"}, nil, []int{ongoing.ID, ended.ID, future.ID}},
		{"voted", PollFilter{VotedStatus: VotedStatusVoted}, voter, []int{ongoing.ID}},
		{"not voted", PollFilter{VotedStatus: VotedStatusNotVoted}, voter, []int{ended.ID, future.ID}},
		{"voted ignored when anonymous", PollFilter{VotedStatus: VotedStatusVoted}, nil, []int{ongoing.ID, ended.ID, future.ID}},
		{"combined", PollFilter{CreatorName: "alice", PollStatus: "ended", VotedStatus: VotedStatusNotVoted}, voter, []int{ended.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Queries.ListPolls(ctx, tt.filter, tt.caller)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, pollIDs(got))
		})
	}
}

func TestListPollsDerivedState(t *testing.T) {
	svc, db := newTestServices(t)
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	now := time.Now()
	testutil.CreateTestPoll(t, db, manager, now.Add(time.Hour), now.Add(2*time.Hour), "A", "B")

	got, err := svc.Queries.ListPolls(context.Background(), PollFilter{}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.PollNotStarted, got[0].Status)
	assert.False(t, got[0].HasStarted)
	assert.False(t, got[0].IsActive)
	require.NotNil(t, got[0].CreatedBy)
	assert.Len(t, got[0].Choices, 2)
}

func TestListPollsHidesSuspended(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	user := testutil.CreateTestUser(t, db, "user", models.RoleUser)
	visible := testutil.ActivePoll(t, db, manager, "A", "B")
	hidden := testutil.ActivePoll(t, db, manager, "C", "D")

	_, err := svc.Polls.ToggleSuspend(ctx, hidden.ID, manager)
	require.NoError(t, err)

	got, err := svc.Queries.ListPolls(ctx, PollFilter{}, user)
	require.NoError(t, err)
	assert.Equal(t, []int{visible.ID}, pollIDs(got))

	got, err = svc.Queries.ListPolls(ctx, PollFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{visible.ID}, pollIDs(got))

	got, err = svc.Queries.ListPolls(ctx, PollFilter{}, manager)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{visible.ID, hidden.ID}, pollIDs(got))
}

func TestResults(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	poll := testutil.ActivePoll(t, db, manager, "A", "B", "C")

	voters := []*models.User{
		testutil.CreateTestUser(t, db, "v1", models.RoleUser),
		testutil.CreateTestUser(t, db, "v2", models.RoleUser),
		testutil.CreateTestUser(t, db, "v3", models.RoleUser),
	}
	// C gets two votes, A one, B none
	picks := []int{poll.Choices[2].ID, poll.Choices[0].ID, poll.Choices[2].ID}
	for i, v := range voters {
		_, err := svc.Voting.CastVote(ctx, poll.ID, v, picks[i])
		require.NoError(t, err)
	}

	res, err := svc.Queries.Results(ctx, poll.ID, voters[1])
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalVotes)
	require.Len(t, res.Choices, 3)
	assert.Equal(t, "C", res.Choices[0].Name)
	assert.Equal(t, "A", res.Choices[1].Name)
	assert.Equal(t, "B", res.Choices[2].Name)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, poll.Choices[0].ID, res.UserVote.ChoiceID)
	assert.Equal(t, models.PollOngoing, res.Poll.Status)

	anon, err := svc.Queries.Results(ctx, poll.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, anon.UserVote)

	nonVoter := testutil.CreateTestUser(t, db, "lurker", models.RoleUser)
	res, err = svc.Queries.Results(ctx, poll.ID, nonVoter)
	require.NoError(t, err)
	assert.Nil(t, res.UserVote)

	_, err = svc.Queries.Results(ctx, 9999, nil)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestResultsTieBreakByID(t *testing.T) {
	svc, db := newTestServices(t)
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	poll := testutil.ActivePoll(t, db, manager, "First", "Second", "Third")

	res, err := svc.Queries.Results(context.Background(), poll.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, res.TotalVotes)
	require.Len(t, res.Choices, 3)
	assert.Equal(t, "First", res.Choices[0].Name)
	assert.Equal(t, "Second", res.Choices[1].Name)
	assert.Equal(t, "Third", res.Choices[2].Name)
}

func TestResultCounts(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	manager := testutil.CreateTestUser(t, db, "manager", models.RoleManager)
	voter := testutil.CreateTestUser(t, db, "voter", models.RoleUser)
	poll := testutil.ActivePoll(t, db, manager, "A", "B")

	_, err := svc.Voting.CastVote(ctx, poll.ID, voter, poll.Choices[1].ID)
	require.NoError(t, err)

	counts, err := svc.Queries.ResultCounts(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{poll.Choices[0].ID: 0, poll.Choices[1].ID: 1}, counts)

	_, err = svc.Queries.ResultCounts(ctx, 9999)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
