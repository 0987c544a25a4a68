package assessment

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
)

func TestValueUnmarshalNumberAndChoice(t *testing.T) {
	var rs []Response
	blob := []byte(`[{"questionId":"q1","value":4},{"questionId":"q61","value":"B"},{"questionId":"q2","value":null}]`)
	if err := json.Unmarshal(blob, &rs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n, ok := rs[0].Value.Int(); !ok || n != 4 {
		t.Fatalf("expected numeric 4, got %v ok=%v", n, ok)
	}
	if _, ok := rs[1].Value.Int(); ok {
		t.Fatal("expected option key to be non-numeric")
	}
	if rs[1].Value.Key() != "B" {
		t.Fatalf("expected key B, got %q", rs[1].Value.Key())
	}
	if !rs[2].Value.IsZero() {
		t.Fatal("expected null to decode as zero value")
	}
}

func TestValueRejectsFractions(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`3.5`), &v); err == nil {
		t.Fatal("expected error for fractional value")
	}
}

func TestQuestionMappingFallsBackToLabel(t *testing.T) {
	q := Question{
		Type:    TypeScenario,
		Options: []string{"Escalate", "Fix it yourself"},
		OptionMappings: map[string]OptionMapping{
			"Fix it yourself": {"ownership": 2},
		},
	}
	m, ok := q.Mapping(Numeric(2))
	if !ok || m["ownership"] != 2 {
		t.Fatalf("expected label fallback mapping, got %v ok=%v", m, ok)
	}
	if _, ok := q.Mapping(Numeric(1)); ok {
		t.Fatal("expected no mapping for option 1")
	}
}

func TestIncompleteErrorCarriesMissingCount(t *testing.T) {
	err := NewIncompleteError(3)
	if !IsIncomplete(err) {
		t.Fatal("expected incomplete error")
	}
	if MissingCount(err) != 3 {
		t.Fatalf("expected 3 missing, got %d", MissingCount(err))
	}
	var e *Error
	if !errors.As(err, &e) || e.Status != 422 {
		t.Fatalf("expected status 422, got %+v", e)
	}
	if e.Message != "3 responses outstanding" {
		t.Fatalf("unexpected message %q", e.Message)
	}
}

func TestPersistenceErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPersistenceError("upsert result", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected persistence error to wrap its cause")
	}
	if !IsPersistence(err) || IsValidation(err) {
		t.Fatal("unexpected classification")
	}
}
