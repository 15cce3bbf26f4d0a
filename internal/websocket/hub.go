package livews

import (
	"context"
	"errors"
)

var (
	ErrTooManyConnections = errors.New("too many live connections for user")
	ErrHubClosed          = errors.New("live hub closed")
)

type registration struct {
	client *Client
	reply  chan error
}

// Hub tracks live connections per user and caps how many one user may hold.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	maxPerUser int
	register   chan registration
	unregister chan *Client
	count      chan chan int
	done       chan struct{}
}

func NewHub(maxPerUser int) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxPerUser: maxPerUser,
		register:   make(chan registration),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run owns the registry until ctx ends, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					_ = client.conn.Close()
				}
			}
			h.clients = map[string]map[*Client]struct{}{}
			return
		case req := <-h.register:
			set, ok := h.clients[req.client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[req.client.userID] = set
			}
			if h.maxPerUser > 0 && len(set) >= h.maxPerUser {
				req.reply <- ErrTooManyConnections
				continue
			}
			set[req.client] = struct{}{}
			req.reply <- nil
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			delete(set, client)
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case reply := <-h.count:
			total := 0
			for _, set := range h.clients {
				total += len(set)
			}
			reply <- total
		}
	}
}

func (h *Hub) Register(client *Client) error {
	reply := make(chan error, 1)
	select {
	case h.register <- registration{client: client, reply: reply}:
		return <-reply
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}
