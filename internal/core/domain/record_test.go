package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestRecordNames(t *testing.T) {
	if !strings.HasPrefix(TestRecordName(), "test-") {
		t.Errorf("TestRecordName() missing test- prefix")
	}
	if !strings.HasPrefix(EphemeralFileRecordName(), "ephemeral-file-") {
		t.Errorf("EphemeralFileRecordName() missing ephemeral-file- prefix")
	}
	if got := PersistentFileRecordName("abc123"); got != "persistent-file-abc123" {
		t.Errorf("PersistentFileRecordName() = %q, want persistent-file-abc123", got)
	}
}

func TestRandomNamesNeverRepeat(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		for _, name := range []string{TestRecordName(), EphemeralFileRecordName()} {
			if _, ok := seen[name]; ok {
				t.Fatalf("random record name %q repeated", name)
			}
			seen[name] = struct{}{}
		}
	}
}

func TestPersistentNamesAreDeterministic(t *testing.T) {
	if PersistentFileRecordName("id") != PersistentFileRecordName("id") {
		t.Error("PersistentFileRecordName() not deterministic")
	}
}

func TestRecordPayload(t *testing.T) {
	rec := NewRecord("rec-1", RecordTypeBackup)
	if rec.Payload() != nil {
		t.Errorf("new record has payload %v, want nil", rec.Payload())
	}

	rec.SetPayload([]byte("data"))
	if string(rec.Payload()) != "data" {
		t.Errorf("Payload() = %q, want data", rec.Payload())
	}

	var bare Record
	bare.SetPayload([]byte("x"))
	if string(bare.Payload()) != "x" {
		t.Error("SetPayload() did not initialize a nil field map")
	}
}

func TestServiceError(t *testing.T) {
	cause := errors.New("underlying")
	err := NewServiceError(CodeRateLimited, cause)

	if !errors.Is(err, cause) {
		t.Error("ServiceError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), string(CodeRateLimited)) {
		t.Errorf("Error() = %q, missing code", err.Error())
	}

	bare := NewServiceError(CodeUnknownItem, nil)
	if !strings.Contains(bare.Error(), string(CodeUnknownItem)) {
		t.Errorf("Error() = %q, missing code", bare.Error())
	}
}

func TestAccountStatusAvailable(t *testing.T) {
	for _, status := range []AccountStatus{AccountStatusUndetermined, AccountStatusNoAccount, AccountStatusRestricted} {
		if status.Available() {
			t.Errorf("%s.Available() = true, want false", status)
		}
	}
	if !AccountStatusAvailable.Available() {
		t.Error("available.Available() = false, want true")
	}
}
