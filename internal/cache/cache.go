package cache

import (
	"strings"
	"sync"
	"time"
)

// ============================================================================
// CACHE - IN-MEMORY CON TTL DESLIZANTE
// ============================================================================
// Caché thread-safe con expiración automática. La consola web lo usa para
// las sesiones en memoria y para el registro de controladores por sesión:
// cada lectura con Touch renueva la expiración, así una sesión activa no
// caduca mientras el operador siga trabajando.
//
// Uso:
//   sessions := cache.New[Session](30*time.Minute, time.Minute)
//   sessions.Set("sid", s)
//   if s, found := sessions.Touch("sid"); found {
//       ...
//   }

// Item es un elemento en caché con timestamp de expiración
type Item[V any] struct {
	Value      V
	Expiration int64 // Unix nanos, 0 = nunca
}

// Cache es un almacén thread-safe de key-value con TTL
type Cache[V any] struct {
	items             map[string]Item[V]
	mu                sync.RWMutex
	defaultExpiration time.Duration
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
	onEvict           func(key string, value V)
}

// New crea un caché con TTL por defecto. Si cleanupInterval > 0 se inicia
// una goroutine que elimina periódicamente los items expirados.
func New[V any](defaultExpiration, cleanupInterval time.Duration) *Cache[V] {
	c := &Cache[V]{
		items:             make(map[string]Item[V]),
		defaultExpiration: defaultExpiration,
		cleanupInterval:   cleanupInterval,
		stopCleanup:       make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.startCleanupTimer()
	}

	return c
}

// OnEvict registra un callback que se ejecuta cuando la limpieza periódica
// elimina un item expirado. Debe llamarse antes de usar el caché.
func (c *Cache[V]) OnEvict(fn func(key string, value V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Set almacena un valor con la expiración por defecto
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultExpiration)
}

// SetWithTTL almacena un valor con una duración de expiración específica
func (c *Cache[V]) SetWithTTL(key string, value V, duration time.Duration) {
	c.mu.Lock()
	c.items[key] = Item[V]{Value: value, Expiration: expiresAt(duration)}
	c.mu.Unlock()
}

// Get recupera un valor sin renovar su expiración
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found || item.expired(time.Now().UnixNano()) {
		var zero V
		if found {
			c.Delete(key)
		}
		return zero, false
	}
	return item.Value, true
}

// Touch recupera un valor y extiende su expiración por el TTL por defecto
func (c *Cache[V]) Touch(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, found := c.items[key]
	if !found {
		return zero, false
	}
	if item.expired(time.Now().UnixNano()) {
		delete(c.items, key)
		return zero, false
	}
	item.Expiration = expiresAt(c.defaultExpiration)
	c.items[key] = item
	return item.Value, true
}

// Delete elimina un key del caché
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix elimina todas las keys que empiezan con el prefijo dado
func (c *Cache[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			count++
		}
	}
	return count
}

// Clear limpia completamente el caché
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]Item[V])
	c.mu.Unlock()
}

// Count retorna el número de items en caché (incluye expirados)
func (c *Cache[V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats son las estadísticas del caché
type Stats struct {
	TotalItems   int `json:"total_items"`
	ExpiredItems int `json:"expired_items"`
	ValidItems   int `json:"valid_items"`
}

// GetStats retorna estadísticas actuales del caché
func (c *Cache[V]) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{TotalItems: len(c.items)}
	now := time.Now().UnixNano()
	for _, item := range c.items {
		if item.expired(now) {
			stats.ExpiredItems++
		} else {
			stats.ValidItems++
		}
	}
	return stats
}

// startCleanupTimer ejecuta limpieza periódica de items expirados
func (c *Cache[V]) startCleanupTimer() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// DeleteExpired elimina todos los items expirados y retorna cuántos fueron
func (c *Cache[V]) DeleteExpired() int {
	type evicted struct {
		key   string
		value V
	}
	var gone []evicted

	c.mu.Lock()
	now := time.Now().UnixNano()
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
			gone = append(gone, evicted{key, item.Value})
		}
	}
	onEvict := c.onEvict
	c.mu.Unlock()

	if onEvict != nil {
		for _, e := range gone {
			onEvict(e.key, e.value)
		}
	}
	return len(gone)
}

// Stop detiene la limpieza automática. Es seguro llamarlo más de una vez.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func (it Item[V]) expired(now int64) bool {
	return it.Expiration > 0 && now > it.Expiration
}

func expiresAt(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return time.Now().Add(d).UnixNano()
}
