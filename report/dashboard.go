/*
Copyright (C) 2026  d4 Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package report

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Dashboard upgrades an HTTP connection to a websocket and pushes one JSON
// frame per improved leaderboard cost, letting an operator watch a search
// run converge live. Adapted from scm/network.go's "websocket" Scheme
// builtin: same upgrader/read-loop/close-handling shape, minus the
// onMessage/onClose Scheme callbacks (a dashboard only ever pushes, it
// never needs to react to client messages).
type Dashboard struct {
	upgrader websocket.Upgrader
}

// NewDashboard returns a Dashboard ready to upgrade connections. Like the
// teacher's websocket builtin, CheckOrigin is left permissive: this is an
// operator-facing status feed, not a browser-trust boundary.
func NewDashboard() *Dashboard {
	d := &Dashboard{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	d.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	return d
}

// Update is one progress frame pushed to connected dashboards.
type Update struct {
	Cost        float64            `json:"cost"`
	Design      []CollectionDesign `json:"design"`
	Leaderboard int                `json:"leaderboard_size"`
}

// Feed is a live connection handed back by ServeHTTP: Send pushes an
// Update, Close tears the connection down. Mirrors the send-callback the
// teacher's websocket builtin returns from the Scheme call itself.
type Feed struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Send writes one Update frame as JSON text.
func (f *Feed) Send(u Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close ends the websocket connection.
func (f *Feed) Close() error {
	return f.conn.Close()
}

// ServeHTTP upgrades the request to a websocket and hands the open
// connection to onOpen, which is responsible for calling Send as the
// search run progresses and Close when it's done. A background goroutine
// drains client reads purely to detect disconnect, same as the teacher's
// read loop existing only to notice a *websocket.CloseError.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request, onOpen func(*Feed)) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("report: dashboard upgrade failed: %v", err)
		return
	}
	feed := &Feed{conn: conn}
	onOpen(feed)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("report: dashboard receive error: %v", fmt.Sprint(rec))
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if _, ok := err.(*websocket.CloseError); ok {
					return
				}
				return
			}
		}
	}()
}
