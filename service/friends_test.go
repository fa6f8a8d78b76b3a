package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickchat/models"
)

const (
	alice = "aaaaaaaa-0000-0000-0000-000000000001"
	bob   = "bbbbbbbb-0000-0000-0000-000000000002"
	carol = "cccccccc-0000-0000-0000-000000000003"
)

func newFriendService(t *testing.T) (*FriendService, sqlmock.Sqlmock, *recordingNotifier) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	notifier := &recordingNotifier{}
	return NewFriendService(db, notifier), mock, notifier
}

func expectExists(mock sqlmock.Sqlmock, query string, exists bool) {
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectUserRow(mock sqlmock.Sqlmock, id, name, email string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, avatar, created_at FROM users WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "avatar", "created_at"}).
			AddRow(id, name, email, nil, time.Now()))
}

func TestSendRequestSelf(t *testing.T) {
	svc, _, _ := newFriendService(t)

	_, err := svc.SendRequest(alice, alice)
	assert.Equal(t, ErrSelfRequest, err)
}

func TestSendRequestReceiverMissing(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT who_can_add_me FROM users WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"who_can_add_me"}))

	_, err := svc.SendRequest(alice, bob)
	assert.Equal(t, ErrUserNotFound, err)
}

func TestSendRequestDuplicatePending(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT who_can_add_me FROM users WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"who_can_add_me"}).AddRow("everyone"))
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)", false)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = ? AND receiver_id = ? AND status = 'pending')", true)

	_, err := svc.SendRequest(alice, bob)
	assert.Equal(t, ErrDuplicateRequest, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendRequestAlreadyFriends(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT who_can_add_me FROM users WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"who_can_add_me"}).AddRow("everyone"))
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)", true)

	_, err := svc.SendRequest(alice, bob)
	assert.Equal(t, ErrAlreadyFriends, err)
}

func TestSendRequestBlockedEitherDirection(t *testing.T) {
	t.Run("blocked by sender", func(t *testing.T) {
		svc, mock, _ := newFriendService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT who_can_add_me FROM users WHERE id = ?")).
			WillReturnRows(sqlmock.NewRows([]string{"who_can_add_me"}).AddRow("everyone"))
		expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)", false)
		expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", true)

		_, err := svc.SendRequest(alice, bob)
		assert.Equal(t, ErrYouBlocked, err)
	})

	t.Run("blocked by receiver", func(t *testing.T) {
		svc, mock, _ := newFriendService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT who_can_add_me FROM users WHERE id = ?")).
			WillReturnRows(sqlmock.NewRows([]string{"who_can_add_me"}).AddRow("everyone"))
		expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)", false)
		expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
		expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", true)

		_, err := svc.SendRequest(alice, bob)
		assert.Equal(t, ErrBlockedByPeer, err)
	})
}

func TestSendRequestPrivacyNobody(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT who_can_add_me FROM users WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"who_can_add_me"}).AddRow("nobody"))
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)", false)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = ? AND receiver_id = ? AND status = 'pending')", false)

	_, err := svc.SendRequest(alice, bob)
	assert.Equal(t, ErrPrivacyDenied, err)
}

func TestSendRequestFriendsOfFriends(t *testing.T) {
	run := func(t *testing.T, mutual bool) error {
		svc, mock, _ := newFriendService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT who_can_add_me FROM users WHERE id = ?")).
			WillReturnRows(sqlmock.NewRows([]string{"who_can_add_me"}).AddRow("friends_of_friends"))
		expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)", false)
		expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
		expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
		expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = ? AND receiver_id = ? AND status = 'pending')", false)
		mock.ExpectQuery("FROM friendships fa").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(mutual))
		if mutual {
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO friend_requests")).
				WillReturnResult(sqlmock.NewResult(0, 1))
			expectUserRow(mock, alice, "Alice", "alice@example.com")
		}

		_, err := svc.SendRequest(alice, bob)
		return err
	}

	t.Run("mutual friend exists", func(t *testing.T) {
		assert.NoError(t, run(t, true))
	})
	t.Run("no mutual friend", func(t *testing.T) {
		assert.Equal(t, ErrPrivacyDenied, run(t, false))
	})
}

func TestSendRequestSuccessNotifiesReceiver(t *testing.T) {
	svc, mock, notifier := newFriendService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT who_can_add_me FROM users WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"who_can_add_me"}).AddRow("everyone"))
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)", false)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = ? AND receiver_id = ? AND status = 'pending')", false)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO friend_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectUserRow(mock, alice, "Alice", "alice@example.com")

	req, err := svc.SendRequest(alice, bob)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, alice, req.SenderID)
	assert.Equal(t, bob, req.ReceiverID)
	assert.Equal(t, []string{"friend-request-received"}, notifier.eventsFor(bob))
}

func TestAcceptRequestCreatesEdgeTransactionally(t *testing.T) {
	svc, mock, notifier := newFriendService(t)
	requestID := "req-1"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sender_id FROM friend_requests WHERE id = ? AND receiver_id = ? AND status = 'pending'")).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id"}).AddRow(alice))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE friend_requests SET status = 'accepted'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	lo, hi := models.EdgeKey(alice, bob)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM friendships WHERE user_lo = ? AND user_hi = ?)")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO friendships (id, user_lo, user_hi, created_at)")).
		WithArgs(sqlmock.AnyArg(), lo, hi, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectUserRow(mock, bob, "Bob", "bob@example.com")

	err := svc.AcceptRequest(bob, requestID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Contains(t, notifier.eventsFor(alice), "friend-request-accepted")
	assert.Contains(t, notifier.eventsFor(alice), "friend-status-updated")
	assert.Contains(t, notifier.eventsFor(bob), "friend-status-updated")
}

func TestAcceptRequestUnknownID(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sender_id FROM friend_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id"}))

	err := svc.AcceptRequest(bob, "nope")
	assert.Equal(t, ErrRequestNotFound, err)
}

func TestAcceptRequestRolledBackOnEdgeFailure(t *testing.T) {
	svc, mock, notifier := newFriendService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sender_id FROM friend_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id"}).AddRow(alice))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE friend_requests SET status = 'accepted'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM friendships")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO friendships")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := svc.AcceptRequest(bob, "req-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, notifier.eventsFor(alice))
}

func TestAcceptRequestCrossedPendings(t *testing.T) {
	// A->B and B->A were both pending and the reverse request was accepted
	// first. Accepting the second must resolve it and report the conflict,
	// not 500 on the unique pair key or strand the request as pending.
	svc, mock, notifier := newFriendService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sender_id FROM friend_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id"}).AddRow(alice))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE friend_requests SET status = 'accepted'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM friendships")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	err := svc.AcceptRequest(bob, "req-2")
	assert.Equal(t, ErrAlreadyFriends, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, notifier.eventsFor(alice))
}

func TestRejectRequest(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE friend_requests SET status = 'rejected'")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.RejectRequest(bob, "req-1"))
}

func TestRejectRequestNotPending(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE friend_requests SET status = 'rejected'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Equal(t, ErrRequestNotFound, svc.RejectRequest(bob, "req-1"))
}

func TestCancelRequestDeletesEntry(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM friend_requests WHERE sender_id = ? AND receiver_id = ? AND status = 'pending'")).
		WithArgs(alice, bob).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.CancelRequest(alice, bob))
}

func TestCancelRequestNone(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM friend_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Equal(t, ErrRequestNotFound, svc.CancelRequest(alice, bob))
}

func TestRemoveFriendIdempotent(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", true)
	mock.ExpectBegin()
	// Never friends: zero rows touched, still no error.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM friendships WHERE user_lo = ? AND user_hi = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM friend_requests WHERE status = 'pending'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.NoError(t, svc.RemoveFriend(alice, bob))
}

func TestRemoveFriendUnknownUser(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", false)

	assert.Equal(t, ErrUserNotFound, svc.RemoveFriend(alice, "ghost"))
}

func TestBlockUserSeversRelationship(t *testing.T) {
	svc, mock, notifier := newFriendService(t)

	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", true)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", false)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blocks")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	lo, hi := models.EdgeKey(alice, bob)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM friendships WHERE user_lo = ? AND user_hi = ?")).
		WithArgs(lo, hi).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM friend_requests WHERE status = 'pending'")).
		WithArgs(alice, bob, bob, alice).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.BlockUser(alice, bob))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"user-blocked"}, notifier.eventsFor(alice))
	assert.Equal(t, []string{"user-blocked-by"}, notifier.eventsFor(bob))
}

func TestBlockUserSelf(t *testing.T) {
	svc, _, _ := newFriendService(t)
	assert.Equal(t, ErrSelfBlock, svc.BlockUser(alice, alice))
}

func TestBlockUserAlreadyBlocked(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", true)
	expectExists(mock, "SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = ? AND blocked_id = ?)", true)

	assert.Equal(t, ErrAlreadyBlocked, svc.BlockUser(alice, bob))
}

func TestUnblockUser(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM blocks WHERE blocker_id = ? AND blocked_id = ?")).
		WithArgs(alice, bob).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.UnblockUser(alice, bob))
}

func TestUnblockUserNotBlocked(t *testing.T) {
	svc, mock, _ := newFriendService(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM blocks")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Equal(t, ErrNotBlocked, svc.UnblockUser(alice, bob))
}

func TestEdgeKeyCanonicalOrdering(t *testing.T) {
	lo1, hi1 := models.EdgeKey(alice, bob)
	lo2, hi2 := models.EdgeKey(bob, alice)
	assert.Equal(t, lo1, lo2)
	assert.Equal(t, hi1, hi2)
	assert.Less(t, lo1, hi1)
}
