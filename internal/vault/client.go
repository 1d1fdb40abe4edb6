package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/cloudvault/internal/core/domain"
	"github.com/vietddude/cloudvault/internal/infra/remote"
)

const defaultMaxAttempts = 5

var (
	// ErrRecordMissing reports that a delete or download targeted a record
	// that does not exist. Direct callers treat this as a failure; composed
	// operations may tolerate it.
	ErrRecordMissing = errors.New("record missing")

	// ErrInvalidResponse reports a structurally invalid service response,
	// such as a successful fetch missing the payload field.
	ErrInvalidResponse = errors.New("invalid response from remote service")
)

// errNotFound signals a not-found classification out of the retry loop so
// each primitive can decide whether that is a result or a failure.
var errNotFound = errors.New("not found")

// Ledger caches names of records known to be saved, letting SaveOnce skip
// the existence round trip. It is advisory: failures are logged and ignored,
// and the remote service stays authoritative. Deletes must Forget the name,
// or a later SaveOnce would skip a record that no longer exists.
type Ledger interface {
	Has(ctx context.Context, name string) (bool, error)
	Mark(ctx context.Context, name string) error
	Forget(ctx context.Context, name string) error
}

// Config holds client tuning.
type Config struct {
	// MaxAttempts bounds total attempts per remote call (not wall-clock
	// time). It reseeds at every page boundary of a paged enumeration.
	MaxAttempts int
	// DefaultDelay is used for delayed retries when the service suggests no
	// delay of its own.
	DefaultDelay time.Duration
	// Ledger is the optional saved-record cache consulted by SaveOnce.
	Ledger Ledger
}

// Client exposes record-level operations against the remote store, each
// wrapped in an automatic retry loop driven by Classify.
//
// Within one composed operation calls are strictly sequential; across
// independent operations the client imposes no ordering. The retry budget is
// a local of the in-flight call chain and is never shared.
type Client struct {
	svc          remote.Service
	log          *slog.Logger
	maxAttempts  int
	defaultDelay time.Duration
	ledger       Ledger
}

// New creates a client over the given remote service.
func New(svc remote.Service, cfg Config, log *slog.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.DefaultDelay <= 0 {
		cfg.DefaultDelay = DefaultRetryDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		svc:          svc,
		log:          log,
		maxAttempts:  cfg.MaxAttempts,
		defaultDelay: cfg.DefaultDelay,
		ledger:       cfg.Ledger,
	}
}

// runWithRetry issues call until a terminal classification: nil on success,
// errNotFound on a not-found classification, or the terminal error. Each
// retry consumes exactly one unit of the attempt budget; delayed retries wait
// on a timer, never a busy spin.
func (c *Client) runWithRetry(ctx context.Context, label string, call func(context.Context) error) error {
	remaining := c.maxAttempts
	attempt := 0

	for {
		attempt++
		attemptsTotal.WithLabelValues(label).Inc()

		err := call(ctx)
		remaining--
		d := Classify(err, remaining, c.defaultDelay)
		decisionsTotal.WithLabelValues(label, d.Outcome.String()).Inc()

		switch d.Outcome {
		case OutcomeSuccess:
			return nil
		case OutcomeNotFound:
			c.log.Debug("record not found", "operation", label, "attempt", attempt)
			return errNotFound
		case OutcomeFail:
			failuresTotal.WithLabelValues(label).Inc()
			c.log.Error("operation failed",
				"operation", label, "attempt", attempt, "error", d.Err)
			return fmt.Errorf("%s failed after %d attempt(s): %w", label, attempt, d.Err)
		case OutcomeRetryAfterDelay:
			c.log.Warn("retrying after delay",
				"operation", label, "attempt", attempt, "delay", d.Delay,
				"remaining", remaining, "error", d.Err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.Delay):
			}
		case OutcomeRetryImmediately:
			c.log.Warn("retrying immediately",
				"operation", label, "attempt", attempt,
				"remaining", remaining, "error", d.Err)
		}
	}
}

// SaveRecord stores the record and returns its name.
func (c *Client) SaveRecord(ctx context.Context, rec *domain.Record) (string, error) {
	log := c.log.With("record", rec.Name)
	err := c.runWithRetry(ctx, "save_record", func(ctx context.Context) error {
		return c.svc.SaveRecord(ctx, rec)
	})
	if errors.Is(err, errNotFound) {
		// A save can never be not-found; the service response is broken.
		return "", fmt.Errorf("save_record %s: %w", rec.Name, ErrInvalidResponse)
	}
	if err != nil {
		return "", err
	}
	log.Debug("record saved")
	return rec.Name, nil
}

// DeleteRecord removes the named record. A missing record is ErrRecordMissing:
// direct deletion targets are expected to exist.
func (c *Client) DeleteRecord(ctx context.Context, name string) error {
	err := c.runWithRetry(ctx, "delete_record", func(ctx context.Context) error {
		return c.svc.DeleteRecord(ctx, name)
	})
	if errors.Is(err, errNotFound) {
		return fmt.Errorf("delete_record %s: %w", name, ErrRecordMissing)
	}
	if err != nil {
		return err
	}
	c.ledgerForget(ctx, name)
	c.log.Debug("record deleted", "record", name)
	return nil
}

// CheckExists fetches the named record without its payload. It returns
// (nil, nil) when the record is absent: this is the one primitive where
// not-found is a first-class result.
func (c *Client) CheckExists(ctx context.Context, name string) (*domain.Record, error) {
	var rec *domain.Record
	err := c.runWithRetry(ctx, "check_exists", func(ctx context.Context) error {
		var ferr error
		rec, ferr = c.svc.FetchRecord(ctx, name, remote.ScopeMetadata)
		return ferr
	})
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DownloadPayload fetches the named record's blob payload. A missing record
// or a record without a payload field is a terminal failure.
func (c *Client) DownloadPayload(ctx context.Context, name string) ([]byte, error) {
	var rec *domain.Record
	err := c.runWithRetry(ctx, "download_payload", func(ctx context.Context) error {
		var ferr error
		rec, ferr = c.svc.FetchRecord(ctx, name, remote.ScopeAllFields)
		return ferr
	})
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("download_payload %s: %w", name, ErrRecordMissing)
	}
	if err != nil {
		return nil, err
	}
	payload := rec.Payload()
	if payload == nil {
		return nil, fmt.Errorf("download_payload %s: payload field absent: %w", name, ErrInvalidResponse)
	}
	return payload, nil
}

// FetchAllRecordNames enumerates every record name of the given type,
// following pagination cursors until the service stops issuing them. The
// attempt budget reseeds at each page boundary: a stall on one page must not
// consume the budget needed for the next. A failed page is reissued from its
// own start cursor; names from prior pages are kept.
func (c *Client) FetchAllRecordNames(ctx context.Context, recordType domain.RecordType) ([]string, error) {
	var (
		names  []string
		cursor *remote.Cursor
		page   int
	)

	for {
		page++
		var result *remote.QueryResult
		start := cursor
		err := c.runWithRetry(ctx, "fetch_record_names", func(ctx context.Context) error {
			var qerr error
			result, qerr = c.svc.QueryRecordNames(ctx, recordType, start)
			return qerr
		})
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("fetch_record_names: %w", ErrInvalidResponse)
		}
		if err != nil {
			return nil, err
		}

		names = append(names, result.Names...)
		c.log.Debug("fetched record name page",
			"page", page, "names", len(result.Names), "total", len(names))

		if result.Next == nil {
			return names, nil
		}
		cursor = result.Next
	}
}
