package vault

import (
	"context"
	"fmt"

	"github.com/vietddude/cloudvault/internal/core/domain"
)

// PayloadProvider lazily produces a payload, invoked only when an upload is
// actually required. A provider failure is a local precondition failure and
// is never retried.
type PayloadProvider func(ctx context.Context) ([]byte, error)

// UpsertRecord creates or overwrites the record under name with the given
// payload, leaving exactly one record under that name. Two concurrent
// upserts of the same name race under the service's last-write-wins
// behavior; the client adds no concurrency tokens.
func (c *Client) UpsertRecord(ctx context.Context, name string, payload []byte) (string, error) {
	existing, err := c.CheckExists(ctx, name)
	if err != nil {
		return "", err
	}

	rec := existing
	if rec == nil {
		rec = domain.NewRecord(name, domain.RecordTypeBackup)
	}
	rec.SetPayload(payload)

	return c.SaveRecord(ctx, rec)
}

// SaveOnce uploads the payload under name at most once across repeated
// invocations. If a record under name already exists the provider is never
// invoked and the existing name is returned, which tolerates interleaved
// partial runs.
func (c *Client) SaveOnce(ctx context.Context, name string, provider PayloadProvider) (string, error) {
	if c.ledgerHas(ctx, name) {
		c.log.Debug("record already uploaded per ledger", "record", name)
		return name, nil
	}

	existing, err := c.CheckExists(ctx, name)
	if err != nil {
		return "", err
	}
	if existing != nil {
		c.ledgerMark(ctx, name)
		return name, nil
	}

	payload, err := provider(ctx)
	if err != nil {
		// Local precondition failure; retrying cannot change it.
		return "", fmt.Errorf("save_once %s: prepare payload: %w", name, err)
	}

	rec := domain.NewRecord(name, domain.RecordTypeBackup)
	rec.SetPayload(payload)
	saved, err := c.SaveRecord(ctx, rec)
	if err != nil {
		return "", err
	}
	c.ledgerMark(ctx, name)
	return saved, nil
}

// CheckServiceAccess probes the hosting account once, without retry, and
// maps the reported status to available/unavailable.
func (c *Client) CheckServiceAccess(ctx context.Context) (bool, domain.AccountStatus) {
	status, err := c.svc.AccountStatus(ctx)
	if err != nil {
		c.log.Warn("service access probe failed", "status", status, "error", err)
	} else {
		c.log.Info("service access probe", "status", status)
	}
	return status.Available(), status
}

func (c *Client) ledgerHas(ctx context.Context, name string) bool {
	if c.ledger == nil {
		return false
	}
	ok, err := c.ledger.Has(ctx, name)
	if err != nil {
		c.log.Warn("ledger lookup failed", "record", name, "error", err)
		return false
	}
	return ok
}

func (c *Client) ledgerMark(ctx context.Context, name string) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.Mark(ctx, name); err != nil {
		c.log.Warn("ledger mark failed", "record", name, "error", err)
	}
}

func (c *Client) ledgerForget(ctx context.Context, name string) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.Forget(ctx, name); err != nil {
		c.log.Warn("ledger forget failed", "record", name, "error", err)
	}
}
