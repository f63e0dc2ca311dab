package notify

import (
	"sync"

	"stockwatcher/internal/quote"
)

// Listener receives quote lifecycle events. Implementations must not
// block; slow consumers should hand off to their own goroutine.
type Listener interface {
	OnQuoteUpdate(market quote.Market, q quote.Quote)
	OnQuoteDelete(market quote.Market, code string)
}

// Bus fans quote events out to registered listeners in subscription order.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
}

func (b *Bus) PublishUpdate(market quote.Market, quotes []quote.Quote) {
	b.mu.RLock()
	listeners := b.listeners
	b.mu.RUnlock()
	for _, l := range listeners {
		for _, q := range quotes {
			l.OnQuoteUpdate(market, q)
		}
	}
}

func (b *Bus) PublishDelete(market quote.Market, code string) {
	b.mu.RLock()
	listeners := b.listeners
	b.mu.RUnlock()
	for _, l := range listeners {
		l.OnQuoteDelete(market, code)
	}
}
