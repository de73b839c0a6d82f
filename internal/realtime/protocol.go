package realtime

import (
	"encoding/json"
	"strings"
	"time"
)

// Inbound events sent by clients.
const (
	EventJoinUserRoom    = "join-user-room"
	EventJoinBookClub    = "join-book-club"
	EventLeaveBookClub   = "leave-book-club"
	EventBookClubMessage = "book-club-message"
	EventReadingProgress = "reading-progress"
	EventAchievement     = "achievement-earned"
	EventTypingStart     = "typing-start"
	EventTypingStop      = "typing-stop"
	EventUserOnline      = "user-online"
	EventUserOffline     = "user-offline"
)

// Outbound events emitted by the server.
const (
	EventNewBookClubMessage    = "new-book-club-message"
	EventReadingProgressUpdate = "reading-progress-update"
	EventNewAchievement        = "new-achievement"
	EventUserTyping            = "user-typing"
	EventUserStatusChange      = "user-status-change"
	EventError                 = "error"
)

const maxChatMessageLength = 4096

type ClientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ServerFrame struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

type clubPayload struct {
	ClubID  string `json:"clubId"`
	Message string `json:"message"`
}

type progressPayload struct {
	BookID   string  `json:"bookId"`
	Progress float64 `json:"progress"`
	Page     int     `json:"page"`
}

type achievementPayload struct {
	Achievement json.RawMessage `json:"achievement"`
}

func UserRoom(userID string) string { return "user-" + userID }

func ClubRoom(clubID string) string { return "club-" + clubID }

// idFrom accepts either a bare JSON string or an object carrying the id under key.
func idFrom(raw json.RawMessage, key string) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if v, ok := obj[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
