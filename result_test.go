package strata

import (
	"errors"
	"testing"
)

func TestResultValueVariant(t *testing.T) {
	res := newValueResult(42)

	if res.Kind() != ResultValue {
		t.Fatalf("Expected ResultValue kind, got %v", res.Kind())
	}
	v, err := res.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}
	if v != 42 {
		t.Errorf("Expected 42, got %d", v)
	}

	if _, err := res.Async(); err == nil {
		t.Error("Async() on a value result must fail")
	}
	if _, err := res.Batch(); err == nil {
		t.Error("Batch() on a value result must fail")
	}
}

func TestResultEmptyVariant(t *testing.T) {
	var res Result[string]

	if res.Kind() != ResultEmpty {
		t.Fatalf("Expected ResultEmpty kind, got %v", res.Kind())
	}
	_, err := res.Value()
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Errorf("Expected UsageError accessing empty result, got %v", err)
	}
}

func TestResultBatchVariant(t *testing.T) {
	slot := &batchSlot{id: "b1", status: JobQueued}
	res := newBatchResult(&BatchJob[int]{slot: slot})

	if res.Kind() != ResultBatch {
		t.Fatalf("Expected ResultBatch kind, got %v", res.Kind())
	}
	job, err := res.Batch()
	if err != nil {
		t.Fatalf("Batch() failed: %v", err)
	}
	if job.ID() != "b1" {
		t.Errorf("Expected job id b1, got %s", job.ID())
	}

	var usage *UsageError
	if _, err := res.Value(); !errors.As(err, &usage) {
		t.Errorf("Expected UsageError accessing wrong variant, got %v", err)
	}
}
