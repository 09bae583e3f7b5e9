package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeNetwork, cause, "fetch products")

	if got := CodeOf(err); got != CodeNetwork {
		t.Fatalf("expected %s, got %s", CodeNetwork, got)
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause to survive wrapping")
	}
}

func TestAsThroughFmtWrapping(t *testing.T) {
	inner := New(CodeTimeout, "catalog poll")
	outer := fmt.Errorf("poll failed: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through %w chain")
	}
	if typed.Code() != CodeTimeout {
		t.Fatalf("expected timeout code, got %s", typed.Code())
	}
	if !IsTimeout(outer) {
		t.Fatal("IsTimeout should see through wrapping")
	}
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("expected internal fallback, got %s", got)
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to 500, got %d", meta.HTTPStatus)
	}
}

func TestDeliveryMetadataIsRetryable(t *testing.T) {
	meta := MetadataFor(CodeDelivery)
	if !meta.Retryable {
		t.Fatal("delivery failures are retried on the next poll tick")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad body").WithDetails(map[string]string{"state": "is required"})
	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["state"] != "is required" {
		t.Fatalf("unexpected details: %v", details)
	}
}
