package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"perkledger/core/events"
	"perkledger/core/types"
)

func seqEvent(seq uint64, eventType string) events.Sequenced {
	return events.Sequenced{
		Seq: seq,
		Evt: &types.Event{Type: eventType, Attributes: map[string]string{"seq": "x"}},
	}
}

func TestRecordAndRecent(t *testing.T) {
	index, err := Open(":memory:")
	require.NoError(t, err)

	require.NoError(t, index.Record(seqEvent(1, "loyalty.reward.issued")))
	require.NoError(t, index.Record(seqEvent(2, "loyalty.redemption.completed")))
	require.NoError(t, index.Record(seqEvent(3, "loyalty.reward.issued")))

	recent, err := index.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, uint64(3), recent[0].Seq)
	require.Equal(t, uint64(2), recent[1].Seq)

	byType, err := index.ByType("loyalty.reward.issued", 10)
	require.NoError(t, err)
	require.Len(t, byType, 2)
	require.Equal(t, uint64(3), byType[0].Seq)

	last, err := index.LastSeq()
	require.NoError(t, err)
	require.Equal(t, uint64(3), last)
}

func TestLastSeqEmpty(t *testing.T) {
	index, err := Open(":memory:")
	require.NoError(t, err)
	last, err := index.LastSeq()
	require.NoError(t, err)
	require.Equal(t, uint64(0), last)
}

func TestRecordSkipsNilPayload(t *testing.T) {
	index, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, index.Record(events.Sequenced{Seq: 1}))
	recent, err := index.Recent(10)
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestFollow(t *testing.T) {
	index, err := Open(":memory:")
	require.NoError(t, err)
	bus := events.NewBus(64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go index.Follow(ctx, bus)

	// Give the follower a moment to subscribe before emitting.
	time.Sleep(50 * time.Millisecond)
	bus.Emit(events.Raw{Evt: &types.Event{Type: "loyalty.reward.issued"}})
	bus.Emit(events.Raw{Evt: &types.Event{Type: "loyalty.tier.changed"}})

	require.Eventually(t, func() bool {
		last, err := index.LastSeq()
		return err == nil && last == 2
	}, 2*time.Second, 20*time.Millisecond)
}

// Events emitted before the follower starts must still be persisted: the
// follower resumes from the retained backlog rather than only from live
// deliveries.
func TestFollowReplaysBacklogOnStart(t *testing.T) {
	index, err := Open(":memory:")
	require.NoError(t, err)
	bus := events.NewBus(64)

	const emitted = 5
	for i := 0; i < emitted; i++ {
		bus.Emit(events.Raw{Evt: &types.Event{Type: "loyalty.reward.issued"}})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go index.Follow(ctx, bus)

	require.Eventually(t, func() bool {
		last, err := index.LastSeq()
		return err == nil && last == emitted
	}, 2*time.Second, 20*time.Millisecond)

	rows, err := index.Recent(emitted * 2)
	require.NoError(t, err)
	require.Len(t, rows, emitted)
}

// A burst larger than the subscription buffer drops deliveries on the bus
// channel; the follower must repair from the backlog so no row is lost.
func TestFollowRecoversDroppedEvents(t *testing.T) {
	index, err := Open(":memory:")
	require.NoError(t, err)
	bus := events.NewBus(2048)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go index.Follow(ctx, bus)
	time.Sleep(50 * time.Millisecond)

	const burst = 1500
	for i := 0; i < burst; i++ {
		bus.Emit(events.Raw{Evt: &types.Event{Type: "loyalty.reward.issued"}})
	}

	require.Eventually(t, func() bool {
		last, err := index.LastSeq()
		return err == nil && last == burst
	}, 10*time.Second, 50*time.Millisecond)

	rows, err := index.Recent(burst + 1)
	require.NoError(t, err)
	require.Len(t, rows, burst)
	for i, row := range rows {
		require.Equal(t, uint64(burst-i), row.Seq)
	}
}
