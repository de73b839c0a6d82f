package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/binhbb2204/litverse/pkg/logger"
)

const (
	DefaultAddr     = "255.255.255.255:9099"
	DefaultInterval = 5 * time.Second

	prefix = "LITVERSE:"
)

// Announcement tells clients on the local network where a server can be reached.
type Announcement struct {
	Name      string            `json:"name"`
	LocalIP   string            `json:"local_ip"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewAnnouncement describes an API server listening on port.
func NewAnnouncement(name, localIP, port string) Announcement {
	host := net.JoinHostPort(localIP, port)
	return Announcement{
		Name:    name,
		LocalIP: localIP,
		Services: map[string]string{
			"api": "http://" + host,
			"ws":  "ws://" + host + "/ws",
		},
	}
}

type Broadcaster struct {
	target       string
	interval     time.Duration
	announcement Announcement
	mu           sync.RWMutex
}

func NewBroadcaster(target string, interval time.Duration, a Announcement) *Broadcaster {
	if target == "" {
		target = DefaultAddr
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Broadcaster{target: target, interval: interval, announcement: a}
}

func (b *Broadcaster) GetAnnouncement() Announcement {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.announcement
}

// Run announces immediately and then every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	logger.Info("discovery_broadcaster_started", "target", b.target, "interval", b.interval.String())
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.broadcast()
	for {
		select {
		case <-ticker.C:
			b.broadcast()
		case <-ctx.Done():
			return
		}
	}
}

func (b *Broadcaster) broadcast() {
	conn, err := net.Dial("udp", b.target)
	if err != nil {
		logger.Error("broadcast_dial_failed", "error", err.Error())
		return
	}
	defer conn.Close()

	b.mu.Lock()
	b.announcement.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(b.announcement)
	b.mu.Unlock()

	if _, err := conn.Write(append([]byte(prefix), data...)); err != nil {
		logger.Error("broadcast_write_failed", "error", err.Error())
	}
}

// Parse decodes one datagram. Packets from other applications are rejected.
func Parse(packet []byte) (Announcement, error) {
	var a Announcement
	if !bytes.HasPrefix(packet, []byte(prefix)) {
		return a, errors.New("not a litverse announcement")
	}
	if err := json.Unmarshal(packet[len(prefix):], &a); err != nil {
		return a, fmt.Errorf("decode announcement: %w", err)
	}
	if a.Services["api"] == "" {
		return a, errors.New("announcement has no api service")
	}
	return a, nil
}

// Collect reads announcements from conn until ctx is done. Repeats of the same
// api address are reported once, in arrival order.
func Collect(ctx context.Context, conn net.PacketConn) ([]Announcement, error) {
	var found []Announcement
	seen := make(map[string]bool)
	buf := make([]byte, 2048)
	for {
		deadline := time.Now().Add(200 * time.Millisecond)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return found, err
		}
		n, _, err := conn.ReadFrom(buf)
		if ctx.Err() != nil {
			return found, nil
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			continue
		}
		if err != nil {
			return found, err
		}
		a, err := Parse(buf[:n])
		if err != nil {
			logger.Debug("discovery_packet_ignored", "error", err.Error())
			continue
		}
		if seen[a.Services["api"]] {
			continue
		}
		seen[a.Services["api"]] = true
		found = append(found, a)
	}
}

// Listen binds addr (":9099" for the default port) and collects until ctx is done.
func Listen(ctx context.Context, addr string) ([]Announcement, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for announcements: %w", err)
	}
	defer conn.Close()
	return Collect(ctx, conn)
}

// LocalIP returns the address of the interface used for outbound traffic.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
