package cache

import (
	"testing"
	"time"
)

func TestKeys(t *testing.T) {
	t.Run("rasterPreview", func(t *testing.T) {
		a := RasterPreviewKey("all_mammals", "viridis")
		b := RasterPreviewKey("all_mammals", "magma")
		if a == b {
			t.Fatalf("different ramps must produce different keys: %q", a)
		}
	})

	t.Run("stats", func(t *testing.T) {
		a := StatsKey("all_mammals", []float64{95})
		b := StatsKey("all_mammals", []float64{90, 95})
		if a == b {
			t.Fatalf("different percentile sets must produce different keys: %q", a)
		}
	})
}

func TestManagerRoundTrip(t *testing.T) {
	m, err := NewManager(Config{
		PreviewCacheSizeMB: 8,
		PreviewTTL:         time.Minute,
		QueryCacheSize:     16,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer m.Close()

	if _, ok := m.GetPreview("missing"); ok {
		t.Fatal("unexpected hit for missing preview")
	}

	key := RunPreviewKey("abc123")
	if err := m.SetPreview(key, []byte("png-bytes")); err != nil {
		t.Fatalf("set preview: %v", err)
	}
	got, ok := m.GetPreview(key)
	if !ok || string(got) != "png-bytes" {
		t.Fatalf("preview round trip failed: %q ok=%v", got, ok)
	}

	m.SetQuery("q", []byte(`{"total_valid_pixels":5}`))
	if got, ok := m.GetQuery("q"); !ok || len(got) == 0 {
		t.Fatal("query round trip failed")
	}
}
