/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	sdhttp "github.com/carverauto/stackdock/pkg/http"
	"github.com/carverauto/stackdock/pkg/models"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Message types sent on a live stream.
const (
	MessageLoading = "loading"
	MessageData    = "data"
)

// StreamMessage is one frame of /resources/{type}/live.
type StreamMessage struct {
	Type      string                `json:"type"`
	Table     *models.ResourceTable `json:"table,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// handleLive pushes the table on every view change until the client leaves
// or the server stops.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	rt, err := parseType(r)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	withSources := provenance(r)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade to WebSocket")
		return
	}

	defer func() { _ = conn.Close() }()

	views, cancel := s.views.Subscribe(rt)
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go s.readClient(conn, stop)

	s.logger.Info().
		Str("remote_addr", r.RemoteAddr).
		Str("resource_type", string(rt)).
		Msg("Live view connected")

	if err := s.stream(ctx, conn, rt, views, withSources); err != nil {
		s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Live view ended")
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn, rt models.ResourceType, views <-chan *models.View, withSources bool) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	// a subscription starts with the current view when there is one
	select {
	case view := <-views:
		if err := s.sendTable(conn, rt, view, withSources); err != nil {
			return err
		}
	default:
		if err := send(conn, StreamMessage{Type: MessageLoading, Timestamp: time.Now()}); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closing:
			return nil
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case view, ok := <-views:
			if !ok {
				return nil
			}

			if err := s.sendTable(conn, rt, view, withSources); err != nil {
				return err
			}
		}
	}
}

func (*Server) sendTable(conn *websocket.Conn, rt models.ResourceType, view *models.View, withSources bool) error {
	table := Table(rt, view, withSources)

	return send(conn, StreamMessage{Type: MessageData, Table: &table, Timestamp: time.Now()})
}

func send(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s message: %w", msg.Type, err)
	}

	return nil
}

// readClient drains client frames so close and pong are processed, and
// cancels the stream when the connection drops.
func (*Server) readClient(conn *websocket.Conn, stop context.CancelFunc) {
	defer stop()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || sdhttp.OriginAllowed(s.cors, origin) {
		return true
	}

	s.logger.Warn().
		Str("origin", origin).
		Strs("allowed_origins", s.cors.AllowedOrigins).
		Msg("WebSocket origin not allowed")

	return false
}
