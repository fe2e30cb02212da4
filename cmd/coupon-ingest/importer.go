package main

import (
	"context"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/abstore/internal/domain/coupon"
)

// couponStore is the subset of the coupon repository the importer writes to.
type couponStore interface {
	ListCodes(ctx context.Context) ([]string, error)
	FindByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	Create(ctx context.Context, c *coupon.Coupon) error
	Upsert(ctx context.Context, c *coupon.Coupon) error
}

type importStats struct {
	created     int
	overwritten int
	skipped     int
	filterHits  int
}

// importer writes parsed rows, using a bloom filter of known codes so only
// probable duplicates cost a lookup.
type importer struct {
	lg        *zap.Logger
	store     couponStore
	overwrite bool
	now       func() time.Time

	known *bloom.BloomFilter
}

func newImporter(lg *zap.Logger, store couponStore, overwrite bool) *importer {
	return &importer{lg: lg, store: store, overwrite: overwrite, now: time.Now}
}

// loadExisting sizes the filter for the stored codes plus incoming rows.
func (imp *importer) loadExisting(ctx context.Context, incoming int, fpr float64) error {
	codes, err := imp.store.ListCodes(ctx)
	if err != nil {
		return err
	}

	imp.known = bloom.NewWithEstimates(uint(max(len(codes)+incoming, 1)), fpr)
	for _, code := range codes {
		imp.known.AddString(coupon.NormalizeCode(code))
	}
	imp.lg.Info("Loaded existing codes", zap.Int("count", len(codes)))
	return nil
}

func (imp *importer) importRows(ctx context.Context, rows []row) (importStats, error) {
	var stats importStats
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := imp.importRow(ctx, r, &stats); err != nil {
			return stats, errors.Wrapf(err, "%s:%d", r.file, r.line)
		}
	}
	return stats, nil
}

func (imp *importer) importRow(ctx context.Context, r row, stats *importStats) error {
	c, err := coupon.New(uuid.New().String(), r.input, imp.now())
	if err != nil {
		return err
	}

	exists := false
	if imp.known.TestString(c.Code) {
		stats.filterHits++
		switch _, err := imp.store.FindByCode(ctx, c.Code); {
		case err == nil:
			exists = true
		case !errors.Is(err, coupon.ErrNotFound):
			return errors.Wrap(err, "lookup existing coupon")
		}
	}

	switch {
	case exists && !imp.overwrite:
		stats.skipped++
		imp.lg.Debug("Skipping existing coupon", zap.String("code", c.Code))
		return nil
	case exists:
		if err := imp.store.Upsert(ctx, c); err != nil {
			return err
		}
		stats.overwritten++
	default:
		err := imp.store.Create(ctx, c)
		switch {
		case err == nil:
			stats.created++
		case !errors.Is(err, coupon.ErrDuplicateCode):
			return err
		case !imp.overwrite:
			// Written since the filter was loaded.
			stats.skipped++
		default:
			if err := imp.store.Upsert(ctx, c); err != nil {
				return err
			}
			stats.overwritten++
		}
	}

	imp.known.AddString(c.Code)
	return nil
}
