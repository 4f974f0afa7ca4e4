package observability_test

import (
	"testing"

	"github.com/boddenberg/spendlog/internal/infra/observability"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrReceipt("created")
	m.IncrReceipt("created")
	m.IncrReceipt("deleted")
	m.IncrCacheHit("token")
	m.IncrCacheHit("token")
	m.IncrCacheHit("token")
	m.IncrCacheMiss("token")
	m.AddUploadBytes(2048)

	s := m.Snapshot()
	if s.ReceiptsCreated != 2 {
		t.Errorf("expected 2 receipts created, got %v", s.ReceiptsCreated)
	}
	if s.CacheHitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", s.CacheHitRate)
	}
	if s.UploadBytes != 2048 {
		t.Errorf("expected 2048 upload bytes, got %v", s.UploadBytes)
	}
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()

	a.IncrReceipt("created")
	if got := b.Snapshot().ReceiptsCreated; got != 0 {
		t.Errorf("expected registries to be independent, got %v", got)
	}
}
