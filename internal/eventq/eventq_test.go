package eventq

import "testing"

func TestOfferDelivers(t *testing.T) {
	ch := make(chan int, 1)
	if !Offer(ch, 7) {
		t.Fatal("Offer on empty buffered channel returned false")
	}
	if got := <-ch; got != 7 {
		t.Fatalf("received %d, want 7", got)
	}
}

func TestOfferFullChannel(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 1
	if Offer(ch, 2) {
		t.Fatal("Offer on full channel returned true")
	}
	if got := <-ch; got != 1 {
		t.Fatalf("buffered value clobbered: got %d, want 1", got)
	}
}

func TestOfferClosedChannel(t *testing.T) {
	ch := make(chan int, 1)
	close(ch)
	if Offer(ch, 3) {
		t.Fatal("Offer on closed channel returned true")
	}
}
