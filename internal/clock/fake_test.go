package clock_test

import (
	"testing"
	"time"

	"livecatalog/internal/clock"
)

func TestFakeAdvanceFiresTicksInOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	ticker := fake.NewTicker(5 * time.Second)
	defer ticker.Stop()

	got := make(chan time.Time, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2; i++ {
			got <- <-ticker.C()
		}
	}()

	fake.Advance(12 * time.Second)
	<-done

	first, second := <-got, <-got
	if !first.Equal(start.Add(5*time.Second)) || !second.Equal(start.Add(10*time.Second)) {
		t.Fatalf("unexpected tick times %s %s", first, second)
	}
	if !fake.Now().Equal(start.Add(12 * time.Second)) {
		t.Fatalf("unexpected now %s", fake.Now())
	}
}

func TestFakeStoppedTickerDoesNotBlockAdvance(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	ticker := fake.NewTicker(time.Second)
	ticker.Stop()
	ticker.Stop()

	fake.Advance(3 * time.Second)
	if fake.TickerCount() != 0 {
		t.Fatalf("expected no running tickers, got %d", fake.TickerCount())
	}
}
