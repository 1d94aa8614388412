package bot

import (
	"errors"
	"sort"
	"sync"

	"github.com/gofrs/uuid"

	"bitget-trader/logging"
	"bitget-trader/models"
)

// ErrBotNotFound is returned for lookups of unknown bot ids.
var ErrBotNotFound = errors.New("bot not found")

// Credentials are the exchange API credentials one bot trades with.
type Credentials struct {
	APIKey     string `json:"apiKey"`
	APISecret  string `json:"secretKey"`
	Passphrase string `json:"passphrase"`
}

// ExchangeFactory builds an exchange client bound to one set of
// credentials. Each bot gets its own client.
type ExchangeFactory func(creds Credentials) Exchange

// Registry owns the set of bots and hands out ids.
type Registry struct {
	factory ExchangeFactory
	logger  logging.LoggerInterface

	mu   sync.Mutex
	bots map[string]*Bot
}

// NewRegistry creates an empty bot registry.
func NewRegistry(factory ExchangeFactory, logger logging.LoggerInterface) *Registry {
	return &Registry{
		factory: factory,
		logger:  logger,
		bots:    make(map[string]*Bot),
	}
}

// Create validates the config, builds a bot with a fresh id and registers
// the given event handlers. When the config is enabled the bot starts
// immediately.
func (r *Registry) Create(creds Credentials, cfg models.BotConfig, handlers ...models.EventHandler) (*Bot, error) {
	id := uuid.Must(uuid.NewV4()).String()
	b, err := New(id, cfg, r.factory(creds), r.logger)
	if err != nil {
		return nil, err
	}
	for _, h := range handlers {
		b.RegisterHandler(h)
	}

	r.mu.Lock()
	r.bots[id] = b
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("Created bot %s for %s (%s)", id, cfg.Symbol, cfg.Strategy)
	}

	if cfg.Enabled {
		if err := b.Start(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Get looks a bot up by id.
func (r *Registry) Get(id string) (*Bot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bots[id]
	if !ok {
		return nil, ErrBotNotFound
	}
	return b, nil
}

// List returns all bots ordered by id.
func (r *Registry) List() []*Bot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Bot, 0, len(r.bots))
	for _, b := range r.bots {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete stops a bot if needed and removes it.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	b, ok := r.bots[id]
	delete(r.bots, id)
	r.mu.Unlock()

	if !ok {
		return ErrBotNotFound
	}
	if b.Running() {
		if err := b.Stop(); err != nil && r.logger != nil {
			r.logger.Warning("Stopping bot %s during delete: %v", id, err)
		}
	}
	if r.logger != nil {
		r.logger.Info("Deleted bot %s", id)
	}
	return nil
}

// StopAll stops every running bot. Used on shutdown.
func (r *Registry) StopAll() {
	for _, b := range r.List() {
		if b.Running() {
			if err := b.Stop(); err != nil && r.logger != nil {
				r.logger.Warning("Stopping bot %s: %v", b.ID, err)
			}
		}
	}
}
