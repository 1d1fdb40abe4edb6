package vault

import (
	"errors"
	"testing"
	"time"

	"github.com/vietddude/cloudvault/internal/core/domain"
)

func svcErr(code domain.ErrorCode) error {
	return domain.NewServiceError(code, errors.New("boom"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		remaining int
		expect    Outcome
	}{
		{"nil error is success", nil, 4, OutcomeSuccess},
		{"nil error with exhausted budget is success", nil, 0, OutcomeSuccess},
		{"unknown item is not found", svcErr(domain.CodeUnknownItem), 4, OutcomeNotFound},
		{"unknown item dominates exhausted budget", svcErr(domain.CodeUnknownItem), 0, OutcomeNotFound},
		{"exhausted budget dominates rate limit", svcErr(domain.CodeRateLimited), 0, OutcomeFail},
		{"exhausted budget dominates network failure", svcErr(domain.CodeNetworkFailure), 0, OutcomeFail},
		{"exhausted budget dominates lost response", svcErr(domain.CodeLostResponse), -1, OutcomeFail},
		{"lost response retries immediately", svcErr(domain.CodeLostResponse), 4, OutcomeRetryImmediately},
		{"network failure retries immediately", svcErr(domain.CodeNetworkFailure), 1, OutcomeRetryImmediately},
		{"rate limit retries after delay", svcErr(domain.CodeRateLimited), 4, OutcomeRetryAfterDelay},
		{"service unavailable retries after delay", svcErr(domain.CodeServiceUnavailable), 4, OutcomeRetryAfterDelay},
		{"resource contention retries after delay", svcErr(domain.CodeResourceContention), 4, OutcomeRetryAfterDelay},
		{"unrecognized service code fails", svcErr(domain.CodeUnknown), 4, OutcomeFail},
		{"plain error fails", errors.New("something odd"), 4, OutcomeFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.err, tt.remaining, DefaultRetryDelay)
			if d.Outcome != tt.expect {
				t.Errorf("Classify() outcome = %v, want %v", d.Outcome, tt.expect)
			}
		})
	}
}

func TestClassify_SuggestedDelay(t *testing.T) {
	err := &domain.ServiceError{
		Code:       domain.CodeRateLimited,
		RetryAfter: 1500 * time.Millisecond,
	}

	d := Classify(err, 4, DefaultRetryDelay)
	if d.Outcome != OutcomeRetryAfterDelay {
		t.Fatalf("Classify() outcome = %v, want %v", d.Outcome, OutcomeRetryAfterDelay)
	}
	if d.Delay != 1500*time.Millisecond {
		t.Errorf("Classify() delay = %s, want 1.5s", d.Delay)
	}
}

func TestClassify_DefaultDelay(t *testing.T) {
	d := Classify(svcErr(domain.CodeServiceUnavailable), 4, 0)
	if d.Delay != DefaultRetryDelay {
		t.Errorf("Classify() delay = %s, want default %s", d.Delay, DefaultRetryDelay)
	}

	d = Classify(svcErr(domain.CodeRateLimited), 4, 7*time.Second)
	if d.Delay != 7*time.Second {
		t.Errorf("Classify() delay = %s, want configured 7s", d.Delay)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	err := svcErr(domain.CodeRateLimited)
	first := Classify(err, 3, DefaultRetryDelay)
	for i := 0; i < 10; i++ {
		if d := Classify(err, 3, DefaultRetryDelay); d != first {
			t.Fatalf("Classify() not deterministic: %+v vs %+v", d, first)
		}
	}
}

func TestClassify_CarriesError(t *testing.T) {
	err := svcErr(domain.CodeUnknown)
	d := Classify(err, 4, DefaultRetryDelay)
	if !errors.Is(d.Err, err) {
		t.Errorf("Classify() did not carry the original error")
	}
}
