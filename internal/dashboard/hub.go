package dashboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub hands out one Board per user. A board is created on first access
// and hydrated from the store before it is returned.
type Hub struct {
	store TaskStore
	ai    Suggester

	mu     sync.Mutex
	boards map[uuid.UUID]*Board
}

func NewHub(store TaskStore, ai Suggester) *Hub {
	return &Hub{
		store:  store,
		ai:     ai,
		boards: make(map[uuid.UUID]*Board),
	}
}

func (h *Hub) Board(ctx context.Context, userID uuid.UUID) *Board {
	h.mu.Lock()
	b, ok := h.boards[userID]
	if ok {
		h.mu.Unlock()
		return b
	}
	b = NewBoard(userID, h.store, h.ai)
	h.boards[userID] = b
	h.mu.Unlock()

	b.Refresh(ctx)
	return b
}
