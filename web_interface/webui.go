// Package web_interface exposes the dashboard API: bot management, account
// queries and a websocket feed of live bot events.
package web_interface

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"bitget-trader/api"
	"bitget-trader/bot"
	"bitget-trader/config"
	"bitget-trader/logging"
	"bitget-trader/models"
)

// AccountClient is the slice of the REST client the account endpoints use.
type AccountClient interface {
	GetAccountInfo() (api.AccountInfo, error)
	GetAssets() ([]api.Asset, error)
	TestConnection() error
	TestAuthentication() error
}

// AccountClientFactory builds an account client for one set of credentials.
type AccountClientFactory func(creds bot.Credentials) AccountClient

// WebUI handles the web interface.
type WebUI struct {
	Config   *config.Config
	Registry *bot.Registry
	Logger   logging.LoggerInterface

	accounts  AccountClientFactory
	upgrader  websocket.Upgrader
	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan Message
	startedAt time.Time
}

// Message represents a WebSocket message.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewWebUI creates a new WebUI instance.
func NewWebUI(cfg *config.Config, registry *bot.Registry, accounts AccountClientFactory, logger logging.LoggerInterface) *WebUI {
	w := &WebUI{
		Config:   cfg,
		Registry: registry,
		Logger:   logger,
		accounts: accounts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 64),
		startedAt: time.Now(),
	}
	return w
}

// Router builds the HTTP routing table.
func (w *WebUI) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/bots", w.listBotsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/bots", w.createBotHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/bots/{id}", w.getBotHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/bots/{id}", w.updateBotHandler).Methods(http.MethodPut)
	r.HandleFunc("/api/bots/{id}", w.deleteBotHandler).Methods(http.MethodDelete)
	r.HandleFunc("/api/bots/{id}/start", w.startBotHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/bots/{id}/stop", w.stopBotHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/account", w.accountInfoHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/account/assets", w.accountAssetsHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/account/test", w.accountTestHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/status", w.statusHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", w.wsHandler)
	return r
}

// Start runs the HTTP server until it fails. The broadcast pump is started
// alongside it.
func (w *WebUI) Start() error {
	go w.handleBroadcasts()
	if w.Logger != nil {
		w.Logger.Info("Starting web interface on %s", w.Config.ListenAddr)
	}
	return http.ListenAndServe(w.Config.ListenAddr, w.Router())
}

func (w *WebUI) writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil && w.Logger != nil {
		w.Logger.Error("Response encoding error: %v", err)
	}
}

func (w *WebUI) writeError(rw http.ResponseWriter, status int, msg string) {
	w.writeJSON(rw, status, map[string]string{"error": msg})
}

// botSummary is the list-view projection of a bot.
type botSummary struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Strategy  string `json:"strategy"`
	Enabled   bool   `json:"enabled"`
	IsRunning bool   `json:"isRunning"`
}

func (w *WebUI) listBotsHandler(rw http.ResponseWriter, r *http.Request) {
	bots := make([]botSummary, 0)
	for _, b := range w.Registry.List() {
		cfg := b.Config()
		bots = append(bots, botSummary{
			ID:        b.ID,
			Symbol:    cfg.Symbol,
			Strategy:  cfg.Strategy,
			Enabled:   cfg.Enabled,
			IsRunning: b.Running(),
		})
	}
	w.writeJSON(rw, http.StatusOK, map[string]interface{}{"bots": bots})
}

// createBotRequest is the POST /api/bots body: credentials plus the bot
// configuration.
type createBotRequest struct {
	bot.Credentials
	Config models.BotConfig `json:"config"`
}

func (w *WebUI) createBotHandler(rw http.ResponseWriter, r *http.Request) {
	var req createBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.writeError(rw, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.APIKey == "" || req.APISecret == "" || req.Passphrase == "" {
		w.writeError(rw, http.StatusBadRequest, "missing API credentials")
		return
	}

	b, err := w.Registry.Create(req.Credentials, req.Config, w.BotEventHandler())
	if err != nil {
		w.writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	w.writeJSON(rw, http.StatusOK, map[string]interface{}{
		"id":      b.ID,
		"message": "Bot created successfully",
		"config":  b.Config(),
	})
}

func (w *WebUI) getBotHandler(rw http.ResponseWriter, r *http.Request) {
	b, err := w.Registry.Get(mux.Vars(r)["id"])
	if err != nil {
		w.writeError(rw, http.StatusNotFound, "Bot not found")
		return
	}
	cfg := b.Config()
	w.writeJSON(rw, http.StatusOK, map[string]interface{}{
		"id":         b.ID,
		"symbol":     cfg.Symbol,
		"strategy":   cfg.Strategy,
		"config":     cfg,
		"isRunning":  b.Running(),
		"positions":  b.Positions(),
		"lastCandle": b.LastCandle(),
	})
}

func (w *WebUI) updateBotHandler(rw http.ResponseWriter, r *http.Request) {
	b, err := w.Registry.Get(mux.Vars(r)["id"])
	if err != nil {
		w.writeError(rw, http.StatusNotFound, "Bot not found")
		return
	}

	var req struct {
		Config *models.BotConfig `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Config == nil {
		w.writeError(rw, http.StatusBadRequest, "missing configuration")
		return
	}
	if err := b.UpdateConfig(*req.Config); err != nil {
		w.writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	// Align the loop with the new enabled flag.
	if req.Config.Enabled && !b.Running() {
		if err := b.Start(); err != nil {
			w.writeError(rw, http.StatusInternalServerError, err.Error())
			return
		}
	} else if !req.Config.Enabled && b.Running() {
		if err := b.Stop(); err != nil {
			w.writeError(rw, http.StatusInternalServerError, err.Error())
			return
		}
	}

	w.writeJSON(rw, http.StatusOK, map[string]interface{}{
		"id":      b.ID,
		"message": "Bot configuration updated",
		"config":  b.Config(),
	})
}

func (w *WebUI) deleteBotHandler(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := w.Registry.Delete(id); err != nil {
		w.writeError(rw, http.StatusNotFound, "Bot not found")
		return
	}
	w.writeJSON(rw, http.StatusOK, map[string]interface{}{
		"id":      id,
		"message": "Bot deleted successfully",
	})
}

func (w *WebUI) startBotHandler(rw http.ResponseWriter, r *http.Request) {
	b, err := w.Registry.Get(mux.Vars(r)["id"])
	if err != nil {
		w.writeError(rw, http.StatusNotFound, "Bot not found")
		return
	}
	if err := b.Start(); err != nil {
		w.writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	w.writeJSON(rw, http.StatusOK, map[string]interface{}{
		"id":      b.ID,
		"message": "Bot started successfully",
	})
}

func (w *WebUI) stopBotHandler(rw http.ResponseWriter, r *http.Request) {
	b, err := w.Registry.Get(mux.Vars(r)["id"])
	if err != nil {
		w.writeError(rw, http.StatusNotFound, "Bot not found")
		return
	}
	if err := b.Stop(); err != nil {
		w.writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	w.writeJSON(rw, http.StatusOK, map[string]interface{}{
		"id":      b.ID,
		"message": "Bot stopped successfully",
	})
}

func (w *WebUI) decodeCredentials(rw http.ResponseWriter, r *http.Request) (bot.Credentials, bool) {
	var creds bot.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		w.writeError(rw, http.StatusBadRequest, "invalid request body")
		return creds, false
	}
	if creds.APIKey == "" || creds.APISecret == "" || creds.Passphrase == "" {
		w.writeError(rw, http.StatusBadRequest, "missing API credentials")
		return creds, false
	}
	return creds, true
}

func (w *WebUI) accountInfoHandler(rw http.ResponseWriter, r *http.Request) {
	creds, ok := w.decodeCredentials(rw, r)
	if !ok {
		return
	}
	info, err := w.accounts(creds).GetAccountInfo()
	if err != nil {
		w.writeError(rw, http.StatusBadGateway, err.Error())
		return
	}
	w.writeJSON(rw, http.StatusOK, map[string]interface{}{"account": info})
}

func (w *WebUI) accountAssetsHandler(rw http.ResponseWriter, r *http.Request) {
	creds, ok := w.decodeCredentials(rw, r)
	if !ok {
		return
	}
	assets, err := w.accounts(creds).GetAssets()
	if err != nil {
		w.writeError(rw, http.StatusBadGateway, err.Error())
		return
	}
	w.writeJSON(rw, http.StatusOK, map[string]interface{}{"assets": assets})
}

func (w *WebUI) accountTestHandler(rw http.ResponseWriter, r *http.Request) {
	creds, ok := w.decodeCredentials(rw, r)
	if !ok {
		return
	}
	client := w.accounts(creds)

	if err := client.TestConnection(); err != nil {
		w.writeJSON(rw, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"error":   "API connection failed",
			"message": err.Error(),
		})
		return
	}
	if err := client.TestAuthentication(); err != nil {
		w.writeJSON(rw, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "API authentication failed",
			"message": err.Error(),
		})
		return
	}
	w.writeJSON(rw, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "API connection and authentication successful",
	})
}

func (w *WebUI) statusHandler(rw http.ResponseWriter, r *http.Request) {
	bots := w.Registry.List()
	running := 0
	for _, b := range bots {
		if b.Running() {
			running++
		}
	}
	w.writeJSON(rw, http.StatusOK, map[string]interface{}{
		"uptimeSeconds": int(time.Since(w.startedAt).Seconds()),
		"totalBots":     len(bots),
		"runningBots":   running,
	})
}
