package stream

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"dirwatch/internal/event"
	"dirwatch/internal/logging"
	"dirwatch/internal/watcher"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsWriteTimeout    = 10 * time.Second
)

type notificationPayload struct {
	Type         string    `json:"type"`
	Path         string    `json:"path"`
	ResolvedPath string    `json:"resolved_path"`
	Sequence     uint64    `json:"sequence"`
	Backend      string    `json:"backend"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
}

func newNotificationPayload(notification watcher.Notification) notificationPayload {
	payload := notificationPayload{
		Type:         notification.Type(),
		Path:         notification.Path,
		ResolvedPath: notification.ResolvedPath,
		Sequence:     notification.Sequence,
		Backend:      notification.Backend,
		Timestamp:    notification.Timestamp(),
		Message:      notification.Message(),
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}
	return payload
}

type eventsHandler struct {
	bus            *event.Bus[watcher.Notification]
	logger         *logging.Logger
	allowedOrigins []string
}

func (h *eventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	output, cancel := h.bus.Subscribe()
	defer cancel()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, h.allowedOrigins)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", map[string]string{
			"remote_addr": r.RemoteAddr,
			"error":       err.Error(),
		})
		return
	}
	defer conn.Close()
	h.logger.Debug("event stream client connected", map[string]string{
		"remote_addr": r.RemoteAddr,
		"clients":     strconv.Itoa(h.bus.SubscriberCount()),
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case notification, ok := <-output:
				if !ok {
					deadline := time.Now().Add(wsWriteTimeout)
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "watch ended"), deadline)
					_ = conn.Close()
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
				if err := conn.WriteJSON(newNotificationPayload(notification)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// isOriginAllowed accepts requests without an Origin header and same-host
// origins unless an explicit allow list is configured.
func isOriginAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := parsed.Hostname()
	if originHost == "" {
		return false
	}
	if len(allowed) > 0 {
		for _, allowedOrigin := range allowed {
			if strings.EqualFold(origin, allowedOrigin) || strings.EqualFold(originHost, allowedOrigin) {
				return true
			}
		}
		return false
	}
	host := r.Host
	if parsedHost, _, err := net.SplitHostPort(host); err == nil {
		host = parsedHost
	}
	return strings.EqualFold(originHost, strings.Trim(host, "[]"))
}
