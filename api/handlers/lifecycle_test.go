package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fashionshop/storefront-notifier/internal/delivery"
	"github.com/fashionshop/storefront-notifier/internal/lifecycle"
)

type fakeMonitor struct {
	transitions []lifecycle.Phase
	pending     []delivery.TapMetadata
	err         error
}

func (f *fakeMonitor) Transition(ctx context.Context, phase lifecycle.Phase) error {
	if f.err != nil {
		return f.err
	}
	f.transitions = append(f.transitions, phase)
	return nil
}

func (f *fakeMonitor) SetPendingNavigation(tap delivery.TapMetadata) {
	f.pending = append(f.pending, tap)
}

func TestReportTransition(t *testing.T) {
	monitor := &fakeMonitor{}
	req := httptest.NewRequest(http.MethodPost, "/v1/lifecycle", strings.NewReader(`{"state":"background"}`))
	rec := httptest.NewRecorder()
	ReportTransition(monitor, testLogger())(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(monitor.transitions) != 1 || monitor.transitions[0] != lifecycle.PhaseBackground {
		t.Fatalf("unexpected transitions %v", monitor.transitions)
	}
}

func TestReportTransitionRejectsUnknownState(t *testing.T) {
	monitor := &fakeMonitor{}
	req := httptest.NewRequest(http.MethodPost, "/v1/lifecycle", strings.NewReader(`{"state":"suspended"}`))
	rec := httptest.NewRecorder()
	ReportTransition(monitor, testLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(monitor.transitions) != 0 {
		t.Fatal("invalid state reached the monitor")
	}
}

func TestReportTransitionRejectsUnknownFields(t *testing.T) {
	monitor := &fakeMonitor{}
	req := httptest.NewRequest(http.MethodPost, "/v1/lifecycle", strings.NewReader(`{"state":"foreground","extra":1}`))
	rec := httptest.NewRecorder()
	ReportTransition(monitor, testLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueueNavigation(t *testing.T) {
	monitor := &fakeMonitor{}
	body := `{"screen":"OrderDetail","action":"open_order"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/lifecycle/navigation", strings.NewReader(body))
	rec := httptest.NewRecorder()
	QueueNavigation(monitor, testLogger())(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(monitor.pending) != 1 {
		t.Fatalf("expected 1 queued intent, got %d", len(monitor.pending))
	}
	if monitor.pending[0].Screen != "OrderDetail" || monitor.pending[0].Action != "open_order" {
		t.Fatalf("unexpected intent %+v", monitor.pending[0])
	}
}

func TestQueueNavigationRequiresFields(t *testing.T) {
	monitor := &fakeMonitor{}
	req := httptest.NewRequest(http.MethodPost, "/v1/lifecycle/navigation", strings.NewReader(`{"screen":"OrderDetail"}`))
	rec := httptest.NewRecorder()
	QueueNavigation(monitor, testLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(monitor.pending) != 0 {
		t.Fatal("incomplete intent was queued")
	}
}
