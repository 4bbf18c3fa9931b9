package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAlertPublish_SplitsByOutcome(t *testing.T) {
	okBefore := testutil.ToFloat64(AlertPublishTotal.WithLabelValues("test", "success"))
	errBefore := testutil.ToFloat64(AlertPublishTotal.WithLabelValues("test", "error"))

	RecordAlertPublish("test", nil)
	RecordAlertPublish("test", errors.New("boom"))
	RecordAlertPublish("test", nil)

	if got := testutil.ToFloat64(AlertPublishTotal.WithLabelValues("test", "success")) - okBefore; got != 2 {
		t.Fatalf("success delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(AlertPublishTotal.WithLabelValues("test", "error")) - errBefore; got != 1 {
		t.Fatalf("error delta = %v, want 1", got)
	}
}

func TestSetHighlightActive(t *testing.T) {
	SetHighlightActive(true)
	if got := testutil.ToFloat64(HighlightActive); got != 1 {
		t.Fatalf("HighlightActive = %v, want 1", got)
	}
	SetHighlightActive(false)
	if got := testutil.ToFloat64(HighlightActive); got != 0 {
		t.Fatalf("HighlightActive = %v, want 0", got)
	}
}
