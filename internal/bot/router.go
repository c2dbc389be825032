package bot

import (
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/kitwiz/miniapp-backend/internal/bot/handlers"
)

// Router dispatches text updates to command handlers through a middleware chain.
type Router struct {
	mu             sync.RWMutex
	commands       map[string]handlers.Handler
	defaultHandler handlers.Handler
	middlewares    []handlers.Middleware
	log            *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]handlers.Handler),
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// RegisterCommand registers a handler for a bot command.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// SetDefault sets the fallback handler for text that matches no command.
func (r *Router) SetDefault(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultHandler = h
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	handler := r.lookup(commandOf(c.Text()))
	if handler == nil {
		r.log.Debug("update has no handler", slog.String("text", c.Text()))
		return nil
	}

	return r.applyMiddlewares(handler)(c)
}

func (r *Router) lookup(cmd string) handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.commands[cmd]; ok && cmd != "" {
		return h
	}
	return r.defaultHandler
}

// applyMiddlewares wraps the handler with all registered middlewares, first registered outermost.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	r.mu.RLock()
	middlewares := make([]handlers.Middleware, len(r.middlewares))
	copy(middlewares, r.middlewares)
	r.mu.RUnlock()

	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}
