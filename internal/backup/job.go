package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/cloudvault/internal/core/domain"
	"github.com/vietddude/cloudvault/internal/vault"
)

// Manifest is the root pointer of a backup: the payload of the single
// well-known manifest record, listing every record the backup comprises.
type Manifest struct {
	DatabaseFiles   []string `json:"database_files"`
	AttachmentFiles []string `json:"attachment_files"`
}

// ErrServiceUnavailable reports that the hosting account cannot serve backup
// traffic; the wrapped status says why.
var ErrServiceUnavailable = errors.New("backup service unavailable")

const defaultParallelism = 4

// Job drives one backup lifecycle over a vault client. Independent uploads
// run concurrently; each individual operation keeps the client's sequential
// retry semantics.
type Job struct {
	client      *vault.Client
	source      Source
	log         *slog.Logger
	parallelism int
}

// Result describes a completed export.
type Result struct {
	SnapshotRecord    string
	AttachmentRecords []string
	ManifestRecord    string
}

func NewJob(client *vault.Client, source Source, log *slog.Logger) *Job {
	if log == nil {
		log = slog.Default()
	}
	return &Job{
		client:      client,
		source:      source,
		log:         log,
		parallelism: defaultParallelism,
	}
}

// ProbeConnectivity saves and deletes a throwaway test record to verify the
// account can write as well as read.
func (j *Job) ProbeConnectivity(ctx context.Context) error {
	available, status := j.client.CheckServiceAccess(ctx)
	if !available {
		return fmt.Errorf("%w: %s", ErrServiceUnavailable, status)
	}

	rec := domain.NewRecord(domain.TestRecordName(), domain.RecordTypeBackup)
	rec.SetPayload([]byte("connectivity probe"))

	name, err := j.client.SaveRecord(ctx, rec)
	if err != nil {
		return fmt.Errorf("connectivity probe save: %w", err)
	}
	if err := j.client.DeleteRecord(ctx, name); err != nil {
		return fmt.Errorf("connectivity probe delete: %w", err)
	}
	j.log.Info("connectivity probe succeeded")
	return nil
}

// Export backs up the data set: the database snapshot as a fresh ephemeral
// record, each attachment as a dedupable persistent record (uploaded at most
// once per content identity), then the manifest upserted under its fixed
// name so the backup's root pointer flips atomically last.
func (j *Job) Export(ctx context.Context) (*Result, error) {
	available, status := j.client.CheckServiceAccess(ctx)
	if !available {
		return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, status)
	}

	snapshotName, err := j.exportSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	attachmentNames, err := j.exportAttachments(ctx)
	if err != nil {
		return nil, err
	}

	manifest := Manifest{
		DatabaseFiles:   []string{snapshotName},
		AttachmentFiles: attachmentNames,
	}
	payload, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	manifestName, err := j.client.UpsertRecord(ctx, domain.ManifestRecordName, payload)
	if err != nil {
		return nil, err
	}

	j.log.Info("export complete",
		"snapshot", snapshotName,
		"attachments", len(attachmentNames),
		"manifest", manifestName)

	return &Result{
		SnapshotRecord:    snapshotName,
		AttachmentRecords: attachmentNames,
		ManifestRecord:    manifestName,
	}, nil
}

func (j *Job) exportSnapshot(ctx context.Context) (string, error) {
	path, err := j.source.DatabaseSnapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot preparation: %w", err)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	rec := domain.NewRecord(domain.EphemeralFileRecordName(), domain.RecordTypeBackup)
	rec.SetPayload(payload)
	return j.client.SaveRecord(ctx, rec)
}

func (j *Job) exportAttachments(ctx context.Context) ([]string, error) {
	files, err := j.source.AttachmentFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("attachment listing: %w", err)
	}

	var (
		mu    sync.Mutex
		names []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.parallelism)

	for _, file := range files {
		file := file
		g.Go(func() error {
			name, err := j.exportAttachment(gctx, file)
			if err != nil {
				return err
			}
			mu.Lock()
			names = append(names, name)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

func (j *Job) exportAttachment(ctx context.Context, file File) (string, error) {
	provider := func(ctx context.Context) ([]byte, error) {
		return os.ReadFile(file.Path)
	}

	if file.PersistentID != "" {
		return j.client.SaveOnce(ctx, domain.PersistentFileRecordName(file.PersistentID), provider)
	}

	payload, err := provider(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read attachment %s: %w", file.Path, err)
	}
	rec := domain.NewRecord(domain.EphemeralFileRecordName(), domain.RecordTypeBackup)
	rec.SetPayload(payload)
	return j.client.SaveRecord(ctx, rec)
}

// Import restores the most recent backup into destDir: the manifest is
// downloaded and every record it references is written under its record
// name. Payloads land in a temp file first and move into place atomically.
func (j *Job) Import(ctx context.Context, destDir string) (*Manifest, error) {
	manifest, err := j.fetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create restore dir: %w", err)
	}

	var records []string
	records = append(records, manifest.DatabaseFiles...)
	records = append(records, manifest.AttachmentFiles...)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.parallelism)
	for _, name := range records {
		name := name
		g.Go(func() error {
			return j.importRecord(gctx, name, destDir)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	j.log.Info("import complete", "records", len(records), "dest", destDir)
	return manifest, nil
}

func (j *Job) importRecord(ctx context.Context, name, destDir string) error {
	payload, err := j.client.DownloadPayload(ctx, name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(destDir, ".cloudvault-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	return os.Rename(tmpName, filepath.Join(destDir, name))
}

// PruneStale deletes every record the current manifest does not reference:
// leftover ephemeral records from interrupted exports, orphaned persistent
// records, stray test records. Records that vanish between the enumeration
// and the delete are tolerated.
func (j *Job) PruneStale(ctx context.Context) (int, error) {
	manifest, err := j.fetchManifest(ctx)
	if err != nil {
		return 0, err
	}

	keep := make(map[string]struct{})
	keep[domain.ManifestRecordName] = struct{}{}
	for _, name := range manifest.DatabaseFiles {
		keep[name] = struct{}{}
	}
	for _, name := range manifest.AttachmentFiles {
		keep[name] = struct{}{}
	}

	names, err := j.client.FetchAllRecordNames(ctx, domain.RecordTypeBackup)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, name := range names {
		if _, ok := keep[name]; ok {
			continue
		}
		err := j.client.DeleteRecord(ctx, name)
		if errors.Is(err, vault.ErrRecordMissing) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		deleted++
		j.log.Debug("pruned stale record", "record", name)
	}

	j.log.Info("prune complete", "deleted", deleted, "kept", len(keep))
	return deleted, nil
}

func (j *Job) fetchManifest(ctx context.Context) (*Manifest, error) {
	payload, err := j.client.DownloadPayload(ctx, domain.ManifestRecordName)
	if err != nil {
		return nil, fmt.Errorf("manifest fetch: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return nil, fmt.Errorf("manifest decode: %w", err)
	}
	return &manifest, nil
}
