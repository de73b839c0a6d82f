package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/binhbb2204/litverse/pkg/logger"
)

// ClubAccess decides whether a reader may join a club room.
type ClubAccess interface {
	CanJoinClub(ctx context.Context, clubID, userID string) (bool, error)
}

// Dispatcher maps inbound client events onto hub publications.
type Dispatcher struct {
	hub    *Hub
	access ClubAccess
}

func NewDispatcher(hub *Hub, access ClubAccess) *Dispatcher {
	return &Dispatcher{hub: hub, access: access}
}

func (d *Dispatcher) Dispatch(c *Client, raw []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
		d.reject(c, "", "malformed frame")
		return
	}

	switch frame.Event {
	case EventJoinUserRoom:
		d.joinUserRoom(c, frame.Data)
	case EventJoinBookClub:
		d.joinClub(c, frame.Data)
	case EventLeaveBookClub:
		if clubID := idFrom(frame.Data, "clubId"); clubID != "" {
			d.hub.Leave(c, ClubRoom(clubID))
		}
	case EventBookClubMessage:
		d.clubMessage(c, frame.Data)
	case EventReadingProgress:
		d.readingProgress(c, frame.Data)
	case EventAchievement:
		d.achievement(c, frame.Data)
	case EventTypingStart, EventTypingStop:
		d.typing(c, frame.Data, frame.Event == EventTypingStart)
	case EventUserOnline, EventUserOffline:
		status := "online"
		if frame.Event == EventUserOffline {
			status = "offline"
		}
		d.hub.Broadcast(EventUserStatusChange, map[string]interface{}{
			"userId": c.UserID,
			"status": status,
		}, c)
	default:
		d.reject(c, frame.Event, "unknown event")
	}
}

// joinUserRoom only ever subscribes a connection to its own reader's room.
func (d *Dispatcher) joinUserRoom(c *Client, data json.RawMessage) {
	if id := idFrom(data, "userId"); id != "" && id != c.UserID {
		d.reject(c, EventJoinUserRoom, "cannot join another reader's room")
		return
	}
	d.hub.Join(c, UserRoom(c.UserID))
}

func (d *Dispatcher) joinClub(c *Client, data json.RawMessage) {
	clubID := idFrom(data, "clubId")
	if clubID == "" {
		d.reject(c, EventJoinBookClub, "clubId is required")
		return
	}
	if d.access != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ok, err := d.access.CanJoinClub(ctx, clubID, c.UserID)
		cancel()
		if err != nil {
			logger.Warn("realtime_club_access_failed", "club_id", clubID, "user_id", c.UserID, "error", err)
			d.reject(c, EventJoinBookClub, "club unavailable")
			return
		}
		if !ok {
			d.reject(c, EventJoinBookClub, "not a member of this club")
			return
		}
	}
	d.hub.Join(c, ClubRoom(clubID))
}

func (d *Dispatcher) clubMessage(c *Client, data json.RawMessage) {
	var p clubPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ClubID == "" {
		d.reject(c, EventBookClubMessage, "clubId is required")
		return
	}
	p.Message = strings.TrimSpace(p.Message)
	if p.Message == "" || len(p.Message) > maxChatMessageLength {
		d.reject(c, EventBookClubMessage, "message must be between 1 and 4096 characters")
		return
	}
	room := ClubRoom(p.ClubID)
	if !d.hub.InRoom(c, room) {
		d.reject(c, EventBookClubMessage, "join the club room first")
		return
	}
	d.hub.Publish(room, EventNewBookClubMessage, map[string]interface{}{
		"clubId":   p.ClubID,
		"message":  p.Message,
		"userId":   c.UserID,
		"username": c.Username,
	}, nil)
}

func (d *Dispatcher) readingProgress(c *Client, data json.RawMessage) {
	var p progressPayload
	if err := json.Unmarshal(data, &p); err != nil || p.BookID == "" {
		d.reject(c, EventReadingProgress, "bookId is required")
		return
	}
	d.hub.PublishToUser(c.UserID, EventReadingProgressUpdate, map[string]interface{}{
		"userId":   c.UserID,
		"bookId":   p.BookID,
		"progress": p.Progress,
		"page":     p.Page,
	})
}

func (d *Dispatcher) achievement(c *Client, data json.RawMessage) {
	var p achievementPayload
	if err := json.Unmarshal(data, &p); err != nil || len(p.Achievement) == 0 {
		d.reject(c, EventAchievement, "achievement is required")
		return
	}
	d.hub.PublishToUser(c.UserID, EventNewAchievement, map[string]interface{}{
		"userId":      c.UserID,
		"achievement": p.Achievement,
	})
}

func (d *Dispatcher) typing(c *Client, data json.RawMessage, typing bool) {
	event := EventTypingStop
	if typing {
		event = EventTypingStart
	}
	clubID := idFrom(data, "clubId")
	if clubID == "" {
		d.reject(c, event, "clubId is required")
		return
	}
	room := ClubRoom(clubID)
	if !d.hub.InRoom(c, room) {
		d.reject(c, event, "join the club room first")
		return
	}
	payload := map[string]interface{}{"userId": c.UserID, "isTyping": typing}
	if typing {
		payload["username"] = c.Username
	}
	d.hub.Publish(room, EventUserTyping, payload, c)
}

func (d *Dispatcher) reject(c *Client, event, msg string) {
	d.hub.SendTo(c, EventError, ErrorPayload{Message: msg, Event: event})
}
