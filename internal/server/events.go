// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// STATE EVENT STREAM
// ============================================================================

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// handleEvents upgrades to a websocket and pushes an engine snapshot as a
// JSON text frame on connect and after every state change. Client frames
// are read only to notice disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS_UPGRADE_FAILED | ip=%s err=%v", GetClientIP(r), err)
		return
	}
	defer conn.Close()

	snapshots, unsubscribe := s.engine.Subscribe()
	defer unsubscribe()

	clientIP := GetClientIP(r)
	log.Printf("WS_CONNECTED | ip=%s", clientIP)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("WS_READ_ERROR | ip=%s err=%v", clientIP, err)
				}
				return
			}
		}
	}()

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(s.engine.Snapshot()); err != nil {
		log.Printf("WS_WRITE_FAILED | ip=%s err=%v", clientIP, err)
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Printf("WS_DISCONNECTED | ip=%s", clientIP)
			return

		case <-r.Context().Done():
			return

		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Printf("WS_WRITE_FAILED | ip=%s err=%v", clientIP, err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
