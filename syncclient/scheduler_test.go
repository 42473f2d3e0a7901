package syncclient

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-backend/models"
)

func newWiredScheduler(t *testing.T, pusher Pusher, debounce time.Duration, opts SchedulerOptions) (*Replica, *Scheduler) {
	t.Helper()
	replica := NewReplica(models.DefaultDocument())
	opts.Debounce = debounce
	s := NewScheduler(replica.WritePayload, pusher, opts)
	replica.OnMutate(s.ScheduleWrite)
	t.Cleanup(s.Close)
	return replica, s
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	require.Eventually(t, func() bool { return !s.Busy() }, 2*time.Second, 5*time.Millisecond)
}

func TestBurstOfMutationsCoalescesIntoOneWrite(t *testing.T) {
	pusher := &recordingPusher{}
	replica, s := newWiredScheduler(t, pusher, 50*time.Millisecond, SchedulerOptions{})
	s.MarkBaselineReady()

	for i := 0; i < 10; i++ {
		require.NoError(t, replica.Mutate(addRoom(fmt.Sprintf("Sala %d", i))))
	}
	assert.True(t, s.Busy())
	assert.Zero(t, pusher.count(), "nothing is sent inside the debounce window")

	require.Eventually(t, func() bool { return pusher.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	waitIdle(t, s)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, pusher.count())

	rooms := pusher.last().Rooms
	require.Len(t, rooms, 13)
	assert.Equal(t, "Sala 9", rooms[12])
}

func TestMutationDuringWriteGetsOneFollowUp(t *testing.T) {
	pusher := &recordingPusher{gate: make(chan struct{}), started: make(chan struct{})}
	replica, s := newWiredScheduler(t, pusher, time.Hour, SchedulerOptions{})
	s.MarkBaselineReady()

	require.NoError(t, replica.Mutate(addRoom("Sala 1")))
	s.Flush()
	<-pusher.started
	assert.Equal(t, Writing, s.State())

	require.NoError(t, replica.Mutate(addRoom("Sala 2")))
	s.Flush()
	require.NoError(t, replica.Mutate(addRoom("Sala 3")))
	s.Flush()
	assert.Equal(t, WritingWithPendingFollowUp, s.State())

	close(pusher.gate)
	require.Eventually(t, func() bool { return pusher.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	waitIdle(t, s)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 2, pusher.count())

	rooms := pusher.last().Rooms
	assert.Equal(t, []string{"Sala 1", "Sala 2", "Sala 3"}, rooms[len(rooms)-3:])
}

func TestWritesWaitForBaseline(t *testing.T) {
	pusher := &recordingPusher{}
	replica, s := newWiredScheduler(t, pusher, time.Hour, SchedulerOptions{})

	require.NoError(t, replica.Mutate(addRoom("Sala 1")))
	s.Flush()
	assert.False(t, s.Busy(), "a deferred write does not block polling")
	assert.Equal(t, Idle, s.State())
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, pusher.count())

	s.MarkBaselineReady()
	assert.True(t, s.BaselineReady())
	require.Eventually(t, func() bool { return pusher.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	waitIdle(t, s)
}

func TestFailureStreakIsReportedOnce(t *testing.T) {
	var reported int32
	notifier := NewNotifier(nil, func(op string, err error) {
		assert.Equal(t, "write", op)
		atomic.AddInt32(&reported, 1)
	})
	pusher := &recordingPusher{}
	pusher.failNext(3)
	replica, s := newWiredScheduler(t, pusher, time.Hour, SchedulerOptions{Notifier: notifier})
	s.MarkBaselineReady()

	for i := 0; i < 3; i++ {
		require.NoError(t, replica.Mutate(addRoom(fmt.Sprintf("Sala %d", i))))
		s.Flush()
		waitIdle(t, s)
	}
	assert.Equal(t, 3, pusher.count())
	assert.Equal(t, int32(1), atomic.LoadInt32(&reported))
	assert.True(t, notifier.Failing())

	require.NoError(t, replica.Mutate(addRoom("Sala ok")))
	s.Flush()
	waitIdle(t, s)
	assert.False(t, notifier.Failing())

	pusher.failNext(1)
	require.NoError(t, replica.Mutate(addRoom("Sala again")))
	s.Flush()
	waitIdle(t, s)
	assert.Equal(t, int32(2), atomic.LoadInt32(&reported), "a new streak is surfaced again")
}

func TestSuccessfulWriteFeedsBackIntoReplica(t *testing.T) {
	pusher := &recordingPusher{}
	replica := NewReplica(models.DefaultDocument())
	s := NewScheduler(replica.WritePayload, pusher, SchedulerOptions{Debounce: time.Hour, OnWritten: replica.ApplyWriteResult})
	replica.OnMutate(s.ScheduleWrite)
	defer s.Close()
	s.MarkBaselineReady()

	require.NoError(t, replica.Mutate(addRoom("Sala 1")))
	s.Flush()
	waitIdle(t, s)
	assert.Equal(t, int64(1), replica.Revision())
	assert.False(t, s.Busy(), "adopting a write result does not schedule another write")
}

func TestCloseDropsPendingDebounce(t *testing.T) {
	pusher := &recordingPusher{}
	replica, s := newWiredScheduler(t, pusher, 20*time.Millisecond, SchedulerOptions{})
	s.MarkBaselineReady()

	require.NoError(t, replica.Mutate(addRoom("Sala 1")))
	s.Close()
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, pusher.count())

	s.ScheduleWrite()
	assert.False(t, s.Busy())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "writing", Writing.String())
	assert.Equal(t, "writing_with_pending_follow_up", WritingWithPendingFollowUp.String())
}
