package stream_test

import (
	"context"
	"testing"
	"time"

	"upkeep/internal/stream"
)

func TestPublishAssignsSequences(t *testing.T) {
	hub := stream.NewHub(16)

	first := hub.Publish(stream.Event{Epoch: 1, Type: stream.EventRunStart})
	second := hub.Publish(stream.Event{Epoch: 1, Type: stream.EventRunComplete})

	if first.Sequence == 0 || second.Sequence <= first.Sequence {
		t.Fatalf("expected increasing sequences, got %d then %d", first.Sequence, second.Sequence)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected publish to stamp timestamp")
	}
}

func TestSubscribeReceivesMatchingEpochOnly(t *testing.T) {
	hub := stream.NewHub(16)
	ch := hub.Subscribe(2)

	hub.Publish(stream.Event{Epoch: 1, Type: stream.EventRunStart})
	hub.Publish(stream.Event{Epoch: 2, Type: stream.EventRunStart})

	select {
	case evt := <-ch:
		if evt.Epoch != 2 || evt.Type != stream.EventRunStart {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event for subscribed epoch")
	}
}

func TestSubscribeSupersedesPriorSubscriber(t *testing.T) {
	hub := stream.NewHub(16)
	old := hub.Subscribe(1)
	_ = hub.Subscribe(2)

	var last stream.Event
	var sawAny bool
	for evt := range old {
		last = evt
		sawAny = true
	}
	if !sawAny {
		t.Fatal("expected superseded event before close")
	}
	if last.Type != stream.EventSuperseded || last.Epoch != 1 {
		t.Fatalf("expected terminal superseded event for epoch 1, got %+v", last)
	}
}

func TestTerminalEventClosesSubscriber(t *testing.T) {
	hub := stream.NewHub(16)
	ch := hub.Subscribe(1)

	hub.Publish(stream.Event{Epoch: 1, Type: stream.EventRunComplete})

	var events []stream.Event
	for evt := range ch {
		events = append(events, evt)
	}
	if len(events) != 1 || events[0].Type != stream.EventRunComplete {
		t.Fatalf("expected single run-complete then close, got %+v", events)
	}
}

func TestFetchFiltersByEpochAndCursor(t *testing.T) {
	hub := stream.NewHub(16)
	hub.Publish(stream.Event{Epoch: 1, Type: stream.EventRunStart})
	marker := hub.Publish(stream.Event{Epoch: 2, Type: stream.EventRunStart})
	hub.Publish(stream.Event{Epoch: 2, Type: stream.EventOutputLine, Text: "hello"})

	events, next, err := hub.Fetch(context.Background(), 2, marker.Sequence, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Text != "hello" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if next < events[0].Sequence {
		t.Fatalf("cursor %d behind newest event %d", next, events[0].Sequence)
	}
}

func TestFetchWaitWakesOnPublish(t *testing.T) {
	hub := stream.NewHub(16)

	go func() {
		time.Sleep(50 * time.Millisecond)
		hub.Publish(stream.Event{Epoch: 7, Type: stream.EventRunStart})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, _, err := hub.Fetch(ctx, 7, 0, 0, true)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Type != stream.EventRunStart {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestFetchWaitHonorsContext(t *testing.T) {
	hub := stream.NewHub(16)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, _, err := hub.Fetch(ctx, 1, 0, 0, true)
	if err == nil {
		t.Fatal("expected context error from waiting fetch")
	}
}

func TestBufferEvictsOldestBeyondCapacity(t *testing.T) {
	hub := stream.NewHub(4)
	for i := 0; i < 8; i++ {
		hub.Publish(stream.Event{Epoch: 1, Type: stream.EventOutputLine})
	}

	events, _, err := hub.Fetch(context.Background(), 1, 0, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected buffer capped at 4 events, got %d", len(events))
	}
	if events[0].Sequence != 5 {
		t.Fatalf("expected oldest retained sequence 5, got %d", events[0].Sequence)
	}
}

func TestFetchLimitCursorResumesWithoutLoss(t *testing.T) {
	hub := stream.NewHub(16)
	texts := []string{"a", "b", "c", "d", "e"}
	for _, text := range texts {
		hub.Publish(stream.Event{Epoch: 1, Type: stream.EventOutputLine, Text: text})
	}

	var got []string
	var since uint64
	for {
		events, next, err := hub.Fetch(context.Background(), 1, since, 2, false)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(events) == 0 {
			break
		}
		for _, evt := range events {
			got = append(got, evt.Text)
		}
		if next <= since {
			t.Fatalf("cursor did not advance: %d -> %d", since, next)
		}
		since = next
	}

	if len(got) != len(texts) {
		t.Fatalf("lost events across truncated batches: got %v", got)
	}
	for i, text := range texts {
		if got[i] != text {
			t.Fatalf("out of order at %d: got %v", i, got)
		}
	}
}
