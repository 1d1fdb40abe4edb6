package remote

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/vietddude/cloudvault/internal/core/domain"
)

// Operation names for fault injection and call accounting.
const (
	OpSave   = "save"
	OpDelete = "delete"
	OpFetch  = "fetch"
	OpQuery  = "query"
)

// MemoryService is an in-memory Service used in tests. Faults queued per
// operation are returned in order before the operation succeeds, which lets
// tests script exact retry sequences.
type MemoryService struct {
	mu       sync.Mutex
	records  map[string]*domain.Record
	pageSize int
	status   domain.AccountStatus
	faults   map[string][]error
	calls    map[string]int
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		records:  make(map[string]*domain.Record),
		pageSize: 2,
		status:   domain.AccountStatusAvailable,
		faults:   make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// InjectFaults queues errors to be returned by the named operation, one per
// call, before it starts succeeding again.
func (m *MemoryService) InjectFaults(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = append(m.faults[op], errs...)
}

// SetPageSize controls how many names a single query page returns.
func (m *MemoryService) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// SetAccountStatus fixes the result of AccountStatus probes.
func (m *MemoryService) SetAccountStatus(status domain.AccountStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// Calls reports how many times the named operation was invoked, including
// calls that failed with an injected fault.
func (m *MemoryService) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Record returns a copy of the stored record, or nil if absent.
func (m *MemoryService) Record(name string) *domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[name]
	if !ok {
		return nil
	}
	return copyRecord(rec)
}

func (m *MemoryService) popFault(op string) error {
	m.calls[op]++
	queue := m.faults[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	m.faults[op] = queue[1:]
	return err
}

func (m *MemoryService) SaveRecord(ctx context.Context, rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popFault(OpSave); err != nil {
		return err
	}
	m.records[rec.Name] = copyRecord(rec)
	return nil
}

func (m *MemoryService) DeleteRecord(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popFault(OpDelete); err != nil {
		return err
	}
	if _, ok := m.records[name]; !ok {
		return domain.NewServiceError(domain.CodeUnknownItem, nil)
	}
	delete(m.records, name)
	return nil
}

func (m *MemoryService) FetchRecord(ctx context.Context, name string, scope FieldScope) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popFault(OpFetch); err != nil {
		return nil, err
	}
	rec, ok := m.records[name]
	if !ok {
		return nil, domain.NewServiceError(domain.CodeUnknownItem, nil)
	}
	out := copyRecord(rec)
	if scope == ScopeMetadata {
		delete(out.Fields, domain.PayloadFieldKey)
	}
	return out, nil
}

func (m *MemoryService) QueryRecordNames(ctx context.Context, recordType domain.RecordType, cursor *Cursor) (*QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popFault(OpQuery); err != nil {
		return nil, err
	}

	var names []string
	for name, rec := range m.records {
		if rec.Type == recordType {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	offset := 0
	if cursor != nil {
		offset, _ = strconv.Atoi(cursor.Token)
	}
	if offset > len(names) {
		offset = len(names)
	}

	end := offset + m.pageSize
	if end > len(names) {
		end = len(names)
	}

	result := &QueryResult{Names: names[offset:end]}
	if end < len(names) {
		result.Next = &Cursor{Token: strconv.Itoa(end)}
	}
	return result, nil
}

func (m *MemoryService) AccountStatus(ctx context.Context) (domain.AccountStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["status"]++
	return m.status, nil
}

func copyRecord(rec *domain.Record) *domain.Record {
	out := domain.NewRecord(rec.Name, rec.Type)
	for k, v := range rec.Fields {
		dup := make([]byte, len(v))
		copy(dup, v)
		out.Fields[k] = dup
	}
	return out
}
