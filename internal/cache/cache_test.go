package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestCacheBasicOperations(t *testing.T) {
	cache := New[string](5*time.Minute, 10*time.Minute)
	defer cache.Stop()

	cache.Set("key1", "value1")

	value, found := cache.Get("key1")
	if !found {
		t.Error("Expected to find key1")
	}
	if value != "value1" {
		t.Errorf("Expected 'value1', got %v", value)
	}

	_, found = cache.Get("nonexistent")
	if found {
		t.Error("Expected not to find nonexistent key")
	}
}

func TestCacheExpiration(t *testing.T) {
	cache := New[string](5*time.Minute, 0)
	defer cache.Stop()

	cache.SetWithTTL("expiring", "value", 100*time.Millisecond)

	if _, found := cache.Get("expiring"); !found {
		t.Error("Expected to find item before expiration")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found := cache.Get("expiring"); found {
		t.Error("Expected item to be expired")
	}
	if cache.Count() != 0 {
		t.Errorf("Expected expired item to be removed on read, count=%d", cache.Count())
	}
}

func TestCacheTouchExtendsExpiration(t *testing.T) {
	cache := New[int](200*time.Millisecond, 0)
	defer cache.Stop()

	cache.Set("sid", 1)
	for i := 0; i < 3; i++ {
		time.Sleep(120 * time.Millisecond)
		if _, found := cache.Touch("sid"); !found {
			t.Fatalf("Expected touched item to survive iteration %d", i)
		}
	}

	time.Sleep(300 * time.Millisecond)
	if _, found := cache.Touch("sid"); found {
		t.Error("Expected idle item to expire")
	}
}

func TestCacheDelete(t *testing.T) {
	cache := New[string](5*time.Minute, 10*time.Minute)
	defer cache.Stop()

	cache.Set("key1", "value1")
	cache.Delete("key1")

	if _, found := cache.Get("key1"); found {
		t.Error("Expected key to be deleted")
	}
}

func TestCacheDeletePrefix(t *testing.T) {
	cache := New[string](5*time.Minute, 10*time.Minute)
	defer cache.Stop()

	cache.Set("session:a", "data1")
	cache.Set("session:b", "data2")
	cache.Set("console:a", "data3")

	if deleted := cache.DeletePrefix("session:"); deleted != 2 {
		t.Errorf("Expected to delete 2 items, got %d", deleted)
	}
	if _, found := cache.Get("session:a"); found {
		t.Error("Expected session:a to be deleted")
	}
	if _, found := cache.Get("console:a"); !found {
		t.Error("Expected console:a to remain")
	}
}

func TestCacheClear(t *testing.T) {
	cache := New[string](5*time.Minute, 10*time.Minute)
	defer cache.Stop()

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Clear()

	if cache.Count() != 0 {
		t.Errorf("Expected empty cache, got %d items", cache.Count())
	}
}

func TestCacheStats(t *testing.T) {
	cache := New[string](5*time.Minute, 0)
	defer cache.Stop()

	cache.Set("key1", "value1")
	cache.SetWithTTL("key2", "value2", 50*time.Millisecond)

	stats := cache.GetStats()
	if stats.TotalItems != 2 {
		t.Errorf("Expected 2 total items, got %d", stats.TotalItems)
	}

	time.Sleep(100 * time.Millisecond)

	stats = cache.GetStats()
	if stats.ExpiredItems != 1 {
		t.Errorf("Expected 1 expired item, got %d", stats.ExpiredItems)
	}
	if stats.ValidItems != 1 {
		t.Errorf("Expected 1 valid item, got %d", stats.ValidItems)
	}
}

func TestCacheDeleteExpiredCallsOnEvict(t *testing.T) {
	cache := New[string](5*time.Minute, 0)
	defer cache.Stop()

	var evicted []string
	cache.OnEvict(func(key, value string) { evicted = append(evicted, key+"="+value) })

	cache.SetWithTTL("old", "x", 10*time.Millisecond)
	cache.Set("fresh", "y")
	time.Sleep(30 * time.Millisecond)

	if n := cache.DeleteExpired(); n != 1 {
		t.Errorf("Expected 1 removed item, got %d", n)
	}
	if len(evicted) != 1 || evicted[0] != "old=x" {
		t.Errorf("Unexpected evictions %v", evicted)
	}
}

func TestCacheStopIsIdempotent(t *testing.T) {
	cache := New[string](time.Minute, time.Minute)
	cache.Stop()
	cache.Stop()
}

func TestCacheConcurrency(t *testing.T) {
	cache := New[int](5*time.Minute, 10*time.Minute)
	defer cache.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set(strconv.Itoa(n), j)
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Touch(strconv.Itoa(n))
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkCacheSet(b *testing.B) {
	cache := New[string](5*time.Minute, 10*time.Minute)
	defer cache.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Set("key", "value")
	}
}

func BenchmarkCacheGet(b *testing.B) {
	cache := New[string](5*time.Minute, 10*time.Minute)
	defer cache.Stop()

	cache.Set("key", "value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get("key")
	}
}
