// Command coupon-ingest bulk-loads coupons from gzip-compressed CSV files.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/abstore/internal/repository"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		overwrite   bool
		bloomFPR    float64
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.csv.gz coupon files (ignored when files are given as arguments)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&overwrite, "overwrite", false, "replace the terms of coupons whose code already exists")
	flag.Float64Var(&bloomFPR, "bloom-fpr", 0.001, "false positive rate of the existing-code filter")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	files := flag.Args()
	if len(files) == 0 {
		files, err = filepath.Glob(filepath.Join(dataDir, "*.csv.gz"))
		if err != nil {
			lg.Fatal("List data dir", zap.Error(err))
		}
	}
	if len(files) == 0 {
		lg.Fatal("No coupon files found", zap.String("dir", dataDir))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, files, databaseURL, overwrite, bloomFPR); err != nil {
		lg.Fatal("Coupon ingest failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, files []string, databaseURL string, overwrite bool, fpr float64) error {
	lg.Info("Parsing coupon files", zap.Int("files", len(files)))

	parsed, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse files")
	}

	var rows []row
	for _, f := range parsed {
		for _, re := range f.rejected {
			lg.Warn("Skipping invalid row", zap.String("file", f.path), zap.Int("line", re.line), zap.Error(re.err))
		}
		rows = append(rows, f.rows...)
	}
	if len(rows) == 0 {
		lg.Info("No valid coupons to import")
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	imp := newImporter(lg, repository.NewCouponRepository(pool), overwrite)
	if err := imp.loadExisting(ctx, len(rows), fpr); err != nil {
		return errors.Wrap(err, "load existing codes")
	}

	stats, err := imp.importRows(ctx, rows)
	lg.Info("Coupon ingest finished",
		zap.Int("created", stats.created),
		zap.Int("overwritten", stats.overwritten),
		zap.Int("skipped", stats.skipped),
		zap.Int("filter_hits", stats.filterHits),
	)
	return err
}
