package domain

// RecordType classifies remote records by logical category.
type RecordType string

const (
	// RecordTypeBackup is the single record type used for backup records.
	RecordTypeBackup RecordType = "backup"
)

// PayloadFieldKey is the well-known field under which a record's blob payload
// is stored.
const PayloadFieldKey = "payload"

// Record is a remote entity identified by a unique name within its type.
// The remote service owns the stored representation; a Record value is only
// a transient in-memory view held while an operation is in flight.
type Record struct {
	Name   string
	Type   RecordType
	Fields map[string][]byte
}

// NewRecord creates a record of the given type with an empty field map.
func NewRecord(name string, recordType RecordType) *Record {
	return &Record{
		Name:   name,
		Type:   recordType,
		Fields: make(map[string][]byte),
	}
}

// Payload returns the record's blob payload, or nil if the payload field is
// absent.
func (r *Record) Payload() []byte {
	return r.Fields[PayloadFieldKey]
}

// SetPayload replaces the record's blob payload.
func (r *Record) SetPayload(payload []byte) {
	if r.Fields == nil {
		r.Fields = make(map[string][]byte)
	}
	r.Fields[PayloadFieldKey] = payload
}
