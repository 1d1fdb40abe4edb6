// Package backup orchestrates export, import, and pruning of a local data
// set against the remote record store, composed from the vault client's
// lifecycle operations.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is one local payload to back up. PersistentID, when set, is a stable
// identifier deriving a dedupable record name; files without one are
// uploaded as ephemeral records every export.
type File struct {
	Path         string
	PersistentID string
}

// Source supplies the local data set lazily: payload files are only read
// when an upload turns out to be required.
type Source interface {
	// DatabaseSnapshot returns the path to a prepared snapshot of the local
	// database.
	DatabaseSnapshot(ctx context.Context) (string, error)

	// AttachmentFiles lists the large files associated with the snapshot.
	AttachmentFiles(ctx context.Context) ([]File, error)
}

// DirSource reads a data set from a directory: the snapshot at
// <root>/snapshot.db and attachments under <root>/attachments. Attachment
// identity is the content hash, so unchanged files dedupe across exports.
type DirSource struct {
	Root string
}

const snapshotFileName = "snapshot.db"

func (s *DirSource) DatabaseSnapshot(ctx context.Context) (string, error) {
	path := filepath.Join(s.Root, snapshotFileName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("database snapshot not prepared: %w", err)
	}
	return path, nil
}

func (s *DirSource) AttachmentFiles(ctx context.Context) ([]File, error) {
	dir := filepath.Join(s.Root, "attachments")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		id, err := hashFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: path, PersistentID: id})
	}
	return files, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open attachment %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash attachment %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
