package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBatchCell_CountsByOutcomeAndMode(t *testing.T) {
	before := testutil.ToFloat64(BatchCells.WithLabelValues("created", "apply"))
	ObserveBatchCell("created", false)
	ObserveBatchCell("created", false)
	after := testutil.ToFloat64(BatchCells.WithLabelValues("created", "apply"))
	if after-before != 2 {
		t.Fatalf("expected counter to grow by 2, got %v", after-before)
	}

	beforePrev := testutil.ToFloat64(BatchCells.WithLabelValues("skipped", "preview"))
	ObserveBatchCell("skipped", true)
	if got := testutil.ToFloat64(BatchCells.WithLabelValues("skipped", "preview")); got-beforePrev != 1 {
		t.Fatalf("expected preview counter +1, got %v", got-beforePrev)
	}
}

func TestObserveHTTP_IncrementsRequestCounter(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("/v1/rooms/{id}/rate", "GET", "200"))
	ObserveHTTP("/v1/rooms/{id}/rate", "GET", 200, 3*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("/v1/rooms/{id}/rate", "GET", "200"))
	if after-before != 1 {
		t.Fatalf("expected counter +1, got %v", after-before)
	}
}
