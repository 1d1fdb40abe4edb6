package domain

import "github.com/google/uuid"

// Record naming conventions. Four record classes share one record type and
// are distinguished by name prefix:
//
//   - test records: random name, used only for connectivity probing
//   - ephemeral records: random name per export, never reused
//   - persistent records: deterministic name from a stable file identifier,
//     written at most once
//   - manifest record: exactly one well-known name per account
const (
	testRecordPrefix       = "test-"
	ephemeralRecordPrefix  = "ephemeral-file-"
	persistentRecordPrefix = "persistent-file-"

	// ManifestRecordName is the fixed, singular name of the backup manifest,
	// the root pointer of a backup.
	ManifestRecordName = "manifest"
)

// TestRecordName returns a fresh random name for a connectivity-probe record.
func TestRecordName() string {
	return testRecordPrefix + uuid.NewString()
}

// EphemeralFileRecordName returns a fresh random name for an ephemeral
// snapshot record. Ephemeral names are never reused across exports.
func EphemeralFileRecordName() string {
	return ephemeralRecordPrefix + uuid.NewString()
}

// PersistentFileRecordName derives the deterministic record name for a
// dedupable file from its stable identifier. Records under these names are
// written at most once.
func PersistentFileRecordName(fileID string) string {
	return persistentRecordPrefix + fileID
}
