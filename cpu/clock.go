package cpu

import (
	"context"
	"time"
)

// Clock produces rising edges at a fixed period.
type Clock struct {
	Period time.Duration
}

// Start emits an edge every period until ctx is done, then closes the channel.
// The ticker drops ticks while the receiver is busy.
func (clk Clock) Start(ctx context.Context) <-chan struct{} {
	edges := make(chan struct{})
	go func() {
		defer close(edges)
		t := time.NewTicker(clk.Period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				select {
				case edges <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return edges
}

// Edges returns a closed channel buffered with exactly n edges,
// for driving Run without wall-clock timing. Negative n yields no edges.
func Edges(n int) <-chan struct{} {
	n = max(n, 0)
	edges := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		edges <- struct{}{}
	}
	close(edges)
	return edges
}
