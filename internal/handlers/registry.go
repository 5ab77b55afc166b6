package handlers

import (
	"log"
	"sync"
	"time"

	"github.com/yourorg/catalogconsole/internal/apiclient"
	"github.com/yourorg/catalogconsole/internal/cache"
	"github.com/yourorg/catalogconsole/internal/console"
	"github.com/yourorg/catalogconsole/internal/notify"
	"github.com/yourorg/catalogconsole/internal/session"
)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	APIBaseURL string
	Sessions   session.Keyed
	Hub        *notify.Hub // nil: sin feed en vivo
	TTL        time.Duration
	ClientOpts []apiclient.Option
}

// Registry keeps one console.Controller per console session. Idle
// controllers expire after TTL; the durable session survives them.
type Registry struct {
	cfg         RegistryConfig
	controllers *cache.Cache[*console.Controller]
	mu          sync.Mutex
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	r := &Registry{
		cfg:         cfg,
		controllers: cache.New[*console.Controller](cfg.TTL, cfg.TTL/2),
	}
	r.controllers.OnEvict(func(sid string, _ *console.Controller) {
		log.Printf("🧹 Consola %s inactiva, controlador liberado", shortID(sid))
	})
	return r
}

// Get returns the controller of sid, creating it when needed. created is
// true for a new controller, which still has to be bootstrapped.
func (r *Registry) Get(sid string) (ctrl *console.Controller, created bool) {
	if ctrl, ok := r.controllers.Touch(sid); ok {
		return ctrl, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctrl, ok := r.controllers.Touch(sid); ok {
		return ctrl, false
	}

	store := session.Bound(r.cfg.Sessions, sid)
	client := apiclient.New(r.cfg.APIBaseURL, session.NewProvider(store), r.cfg.ClientOpts...)
	var opts []console.Option
	if r.cfg.Hub != nil {
		opts = append(opts, console.WithNotifier(r.cfg.Hub.For(sid)))
	}
	ctrl = console.New(client, store, opts...)
	r.controllers.Set(sid, ctrl)
	return ctrl, true
}

// Count returns the number of live controllers.
func (r *Registry) Count() int { return r.controllers.Count() }

// Close stops the expiry janitor.
func (r *Registry) Close() { r.controllers.Stop() }

func shortID(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
