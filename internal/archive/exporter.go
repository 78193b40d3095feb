// Package archive exports periodic JSON snapshots of the payment ledger and
// audit trail to an S3 bucket for retention.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/paylane-ledger/internal/config"
	"github.com/paylane-ledger/internal/domain/audit"
	"github.com/paylane-ledger/internal/domain/payment"
)

// timestampLayout matches the snapshot key naming used by the retention tooling
const timestampLayout = "2006-01-02-15-04-05"

// ObjectStore is the subset of the S3 client the exporter uses
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Exporter snapshots both stores into timestamped JSON objects
type Exporter struct {
	store      ObjectStore
	bucket     string
	prefix     string
	ledgerRepo payment.LedgerRepository
	auditRepo  audit.Repository
	logger     *slog.Logger
}

// NewExporter creates an exporter backed by the given object store
func NewExporter(
	logger *slog.Logger,
	store ObjectStore,
	cfg config.ArchiveConfig,
	ledgerRepo payment.LedgerRepository,
	auditRepo audit.Repository,
) *Exporter {
	return &Exporter{
		store:      store,
		bucket:     cfg.S3Bucket,
		prefix:     cfg.Prefix,
		ledgerRepo: ledgerRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// NewS3Client builds an S3 client from the archive configuration. A custom
// endpoint switches to path-style addressing for MinIO and LocalStack.
func NewS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}

	return s3.NewFromConfig(awsCfg, clientOpts), nil
}

// Run takes one snapshot of both stores. The ledger snapshot is attempted
// first; an audit snapshot failure does not roll it back.
func (e *Exporter) Run(ctx context.Context) error {
	timestamp := time.Now().UTC().Format(timestampLayout)

	transactions, err := e.ledgerRepo.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan payment ledger: %w", err)
	}
	if err := e.upload(ctx, fmt.Sprintf("payment_ledger_backup_%s.json", timestamp), transactions); err != nil {
		return err
	}

	records, err := e.auditRepo.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan audit trail: %w", err)
	}
	if err := e.upload(ctx, fmt.Sprintf("payment_audit_backup_%s.json", timestamp), records); err != nil {
		return err
	}

	e.logger.Info("Snapshot completed",
		"timestamp", timestamp,
		"ledger_records", len(transactions),
		"audit_records", len(records),
	)
	return nil
}

// RunPeriodically takes snapshots on the given interval until the context is
// canceled. The first snapshot runs immediately.
func (e *Exporter) RunPeriodically(ctx context.Context, interval time.Duration) {
	if err := e.Run(ctx); err != nil {
		e.logger.Error("Snapshot failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping archive exporter")
			return
		case <-ticker.C:
			if err := e.Run(ctx); err != nil {
				e.logger.Error("Snapshot failed", "error", err)
			}
		}
	}
}

func (e *Exporter) upload(ctx context.Context, name string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", name, err)
	}

	key := e.prefix + name
	_, err = e.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put failed for %s: %w", key, err)
	}

	e.logger.Info("Snapshot uploaded", "key", key, "bytes", len(body))
	return nil
}
