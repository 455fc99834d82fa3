package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestArticleKey(t *testing.T) {
	a := ArticleKey("https://www.nasa.gov/moon")
	b := ArticleKey("https://www.nasa.gov/mars")

	if a == b {
		t.Error("Expected different keys for different URLs")
	}
	if !strings.HasPrefix(a, "claimcheck:article:v1:") {
		t.Errorf("Unexpected key prefix: %s", a)
	}
	if a != ArticleKey("https://www.nasa.gov/moon") {
		t.Error("Expected stable keys")
	}
}

func TestNew(t *testing.T) {
	if c := New(model.CacheConfig{Enabled: false}); c != nil {
		t.Errorf("Expected nil cache when disabled, got %T", c)
	}
	if _, ok := New(model.CacheConfig{Enabled: true, TTL: time.Hour}).(*MemoryCache); !ok {
		t.Error("Expected memory cache without a directory")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, TTL: time.Hour, Dir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("Expected layered cache with a directory")
	}
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)

	if err := c.Set("k", []byte("article text"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, found := c.Get("k")
	if !found || string(val) != "article text" {
		t.Errorf("Expected hit with stored value, got %q %v", val, found)
	}

	_ = c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("Expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)

	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("Expected expired entry to miss")
	}
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := ArticleKey("https://example.org/a")

	if err := c.Set(key, []byte("persisted"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A fresh instance sees the same entry
	val, found := NewDiskCache(dir, time.Hour).Get(key)
	if !found || string(val) != "persisted" {
		t.Errorf("Expected persisted value, got %q %v", val, found)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("Expected no temp files left behind, got %v", matches)
	}
}

func TestDiskCache_ExpiredAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	_ = c.Set("old", []byte("v"), -time.Second)
	if _, found := c.Get("old"); found {
		t.Error("Expected expired entry to miss")
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, found := c.Get("bad"); found {
		t.Error("Expected corrupt entry to miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(err) {
		t.Error("Expected corrupt entry to be removed")
	}
}

func TestDiskCache_DeleteMissing(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Delete("missing"); err != nil {
		t.Errorf("Expected no error deleting missing key, got %v", err)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	_ = NewDiskCache(dir, time.Hour).Set("k", []byte("from disk"), 0)

	c := NewLayeredCache(time.Hour, dir, time.Hour)
	val, found := c.Get("k")
	if !found || string(val) != "from disk" {
		t.Fatalf("Expected disk hit, got %q %v", val, found)
	}

	if val, found := c.memory.Get("k"); !found || string(val) != "from disk" {
		t.Error("Expected disk hit to be promoted to memory")
	}
}

func TestLayeredCache_Clear(t *testing.T) {
	c := NewLayeredCache(time.Hour, t.TempDir(), time.Hour)

	_ = c.Set("k", []byte("v"), 0)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("Expected miss after clear")
	}
}
