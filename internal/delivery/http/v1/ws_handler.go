package v1

import (
	"net/http"
)

// LiveFeed upgrades admins to the realtime order feed.
type LiveFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

type WSHandler struct {
	feed LiveFeed
}

func NewWSHandler(feed LiveFeed) *WSHandler {
	return &WSHandler{feed: feed}
}

// GET /api/v1/admin/ws
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	h.feed.ServeWS(w, r, actor.ID)
}
