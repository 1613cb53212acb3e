package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Babadzakkkich/project-manager/internal/middleware"
	"github.com/Babadzakkkich/project-manager/internal/service"
	"github.com/Babadzakkkich/project-manager/internal/sse"
	"github.com/gin-gonic/gin"
)

type EventsHandler struct {
	hub               *sse.Hub
	membershipService *service.MembershipService
}

func NewEventsHandler(hub *sse.Hub, membershipService *service.MembershipService) *EventsHandler {
	return &EventsHandler{hub: hub, membershipService: membershipService}
}

func writeSSE(w io.Writer, ev sse.Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
}

// GET /events/groups/:id
//
// Server-sent event stream for one group's board. Clients reconnect with
// Last-Event-ID to replay events they missed while disconnected.
func (h *EventsHandler) StreamGroup(c *gin.Context) {
	groupID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	member, err := h.membershipService.IsMember(nil, userID, groupID)
	if err != nil {
		Fail(c, err)
		return
	}
	if !member {
		Error(c, 403, 40302, "user is not a member of this group")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	ch, unsub := h.hub.Subscribe(groupID)
	defer unsub()

	if header := c.GetHeader("Last-Event-ID"); header != "" {
		missed, err := h.hub.ReplayFrom(groupID, sse.ParseLastEventID(header))
		if err == nil {
			for _, ev := range missed {
				writeSSE(c.Writer, ev)
			}
			c.Writer.Flush()
		}
	}

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(c.Writer, ev)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
