package web_interface

import (
	"net/http"

	"bitget-trader/models"
)

// BotEventHandler returns the event handler that forwards a bot's events to
// every connected websocket client. The push is non-blocking so a slow
// dashboard never stalls a trading loop.
func (w *WebUI) BotEventHandler() models.EventHandler {
	return func(ev models.Event) {
		msg := Message{Type: "bot_event", Data: ev}
		select {
		case w.broadcast <- msg:
		default:
			if w.Logger != nil {
				w.Logger.Warning("Broadcast channel is full, dropping event for bot %s", ev.BotID)
			}
		}
	}
}

// handleBroadcasts fans incoming messages out to all connected clients.
func (w *WebUI) handleBroadcasts() {
	for msg := range w.broadcast {
		w.clientsMu.Lock()
		for client := range w.clients {
			if err := client.WriteJSON(msg); err != nil {
				if w.Logger != nil {
					w.Logger.Warning("WebSocket write error: %v", err)
				}
				delete(w.clients, client)
				client.Close()
			}
		}
		w.clientsMu.Unlock()
	}
}

// wsHandler upgrades the connection and keeps it registered until the
// client goes away. Client frames are read and discarded; the socket is a
// one-way event feed.
func (w *WebUI) wsHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		if w.Logger != nil {
			w.Logger.Warning("WebSocket upgrade error: %v", err)
		}
		return
	}

	w.clientsMu.Lock()
	w.clients[conn] = true
	w.clientsMu.Unlock()

	defer func() {
		w.clientsMu.Lock()
		delete(w.clients, conn)
		w.clientsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
