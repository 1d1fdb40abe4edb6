package vault

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/cloudvault/internal/core/domain"
	"github.com/vietddude/cloudvault/internal/infra/remote"
)

// memoryLedger is an in-process Ledger for tests.
type memoryLedger struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{names: make(map[string]struct{})}
}

func (l *memoryLedger) Has(ctx context.Context, name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.names[name]
	return ok, nil
}

func (l *memoryLedger) Mark(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names[name] = struct{}{}
	return nil
}

func (l *memoryLedger) Forget(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.names, name)
	return nil
}

func TestUpsertRecord_CreatesWhenAbsent(t *testing.T) {
	svc := remote.NewMemoryService()
	c := newTestClient(svc, Config{})

	name, err := c.UpsertRecord(context.Background(), "manifest", []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, "manifest", name)
	assert.Equal(t, []byte("v1"), svc.Record("manifest").Payload())
}

func TestUpsertRecord_LastWriteWins(t *testing.T) {
	svc := remote.NewMemoryService()
	c := newTestClient(svc, Config{})

	_, err := c.UpsertRecord(context.Background(), "manifest", []byte("v1"))
	require.NoError(t, err)
	_, err = c.UpsertRecord(context.Background(), "manifest", []byte("v2"))
	require.NoError(t, err)

	// Exactly one record, holding the second payload.
	names, err := c.FetchAllRecordNames(context.Background(), domain.RecordTypeBackup)
	require.NoError(t, err)
	assert.Equal(t, []string{"manifest"}, names)
	assert.Equal(t, []byte("v2"), svc.Record("manifest").Payload())
}

func TestUpsertRecord_PreservesOtherFields(t *testing.T) {
	svc := remote.NewMemoryService()
	c := newTestClient(svc, Config{})

	rec := backupRecord("manifest", []byte("v1"))
	rec.Fields["note"] = []byte("keep me")
	_, err := c.SaveRecord(context.Background(), rec)
	require.NoError(t, err)

	_, err = c.UpsertRecord(context.Background(), "manifest", []byte("v2"))
	require.NoError(t, err)

	stored := svc.Record("manifest")
	assert.Equal(t, []byte("v2"), stored.Payload())
	assert.Equal(t, []byte("keep me"), stored.Fields["note"])
}

func TestSaveOnce_UploadsAtMostOnce(t *testing.T) {
	svc := remote.NewMemoryService()
	c := newTestClient(svc, Config{})

	invocations := 0
	provider := func(ctx context.Context) ([]byte, error) {
		invocations++
		return []byte("payload"), nil
	}

	name, err := c.SaveOnce(context.Background(), "persistent-file-abc", provider)
	require.NoError(t, err)
	assert.Equal(t, "persistent-file-abc", name)
	assert.Equal(t, 1, invocations)

	// Second invocation short-circuits without touching the provider.
	name, err = c.SaveOnce(context.Background(), "persistent-file-abc", provider)
	require.NoError(t, err)
	assert.Equal(t, "persistent-file-abc", name)
	assert.Equal(t, 1, invocations)
	assert.Equal(t, 1, svc.Calls(remote.OpSave))
}

func TestSaveOnce_LedgerSkipsExistenceCheck(t *testing.T) {
	svc := remote.NewMemoryService()
	c := newTestClient(svc, Config{Ledger: newMemoryLedger()})

	provider := func(ctx context.Context) ([]byte, error) {
		return []byte("payload"), nil
	}

	_, err := c.SaveOnce(context.Background(), "persistent-file-abc", provider)
	require.NoError(t, err)
	fetches := svc.Calls(remote.OpFetch)

	_, err = c.SaveOnce(context.Background(), "persistent-file-abc", provider)
	require.NoError(t, err)
	assert.Equal(t, fetches, svc.Calls(remote.OpFetch))
}

func TestSaveOnce_ReuploadsAfterDelete(t *testing.T) {
	// Deleting a record must evict it from the ledger, or a later SaveOnce
	// would skip the upload and leave the record permanently missing.
	svc := remote.NewMemoryService()
	c := newTestClient(svc, Config{Ledger: newMemoryLedger()})

	provider := func(ctx context.Context) ([]byte, error) {
		return []byte("payload"), nil
	}

	_, err := c.SaveOnce(context.Background(), "persistent-file-abc", provider)
	require.NoError(t, err)
	require.NoError(t, c.DeleteRecord(context.Background(), "persistent-file-abc"))

	_, err = c.SaveOnce(context.Background(), "persistent-file-abc", provider)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Calls(remote.OpSave))
	assert.NotNil(t, svc.Record("persistent-file-abc"))
}

func TestSaveOnce_ProviderFailureIsNotRetried(t *testing.T) {
	svc := remote.NewMemoryService()
	c := newTestClient(svc, Config{MaxAttempts: 5})

	invocations := 0
	providerErr := errors.New("file preparation failed")
	provider := func(ctx context.Context) ([]byte, error) {
		invocations++
		return nil, providerErr
	}

	_, err := c.SaveOnce(context.Background(), "persistent-file-abc", provider)
	require.ErrorIs(t, err, providerErr)
	// Local precondition failures propagate immediately.
	assert.Equal(t, 1, invocations)
	assert.Equal(t, 0, svc.Calls(remote.OpSave))
}

func TestSaveOnce_ToleratesInterleavedRuns(t *testing.T) {
	svc := remote.NewMemoryService()
	c := newTestClient(svc, Config{})

	// Another run already uploaded the record.
	_, err := c.SaveRecord(context.Background(), backupRecord("persistent-file-abc", []byte("theirs")))
	require.NoError(t, err)

	invocations := 0
	name, err := c.SaveOnce(context.Background(), "persistent-file-abc", func(ctx context.Context) ([]byte, error) {
		invocations++
		return []byte("ours"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "persistent-file-abc", name)
	assert.Equal(t, 0, invocations)
	assert.Equal(t, []byte("theirs"), svc.Record("persistent-file-abc").Payload())
}

func TestCheckServiceAccess(t *testing.T) {
	tests := []struct {
		status    domain.AccountStatus
		available bool
	}{
		{domain.AccountStatusUndetermined, false},
		{domain.AccountStatusNoAccount, false},
		{domain.AccountStatusRestricted, false},
		{domain.AccountStatusAvailable, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			svc := remote.NewMemoryService()
			svc.SetAccountStatus(tt.status)
			c := newTestClient(svc, Config{MaxAttempts: 5})

			available, status := c.CheckServiceAccess(context.Background())
			assert.Equal(t, tt.available, available)
			assert.Equal(t, tt.status, status)
			// The probe is never retried, whatever the budget.
			assert.Equal(t, 1, svc.Calls("status"))
		})
	}
}
