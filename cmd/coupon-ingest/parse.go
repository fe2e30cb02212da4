package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/abstore/internal/domain/coupon"
)

// Column order of a coupon CSV row. A leading header row is skipped.
var columns = []string{
	"code", "discount_type", "discount_value", "min_order_value",
	"max_discount", "usage_limit", "start_date", "end_date",
}

// row is one parsed coupon with its origin.
type row struct {
	file  string
	line  int
	input coupon.Input
}

type rowError struct {
	line int
	err  error
}

type fileResult struct {
	path     string
	rows     []row
	rejected []rowError
}

// parseFiles parses every file concurrently. Results keep the order of files.
func parseFiles(ctx context.Context, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			res, err := parseFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "parse %s", path)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func parseFile(ctx context.Context, path string) (fileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileResult{}, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return fileResult{}, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	return parseCSV(ctx, path, r)
}

// parseCSV reads coupon rows from r. Malformed rows are collected in
// rejected; only I/O and CSV syntax errors abort.
func parseCSV(ctx context.Context, path string, r io.Reader) (fileResult, error) {
	res := fileResult{path: path}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, errors.Wrap(err, "read csv")
		}

		line, _ := cr.FieldPos(0)
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), columns[0]) {
			continue
		}

		in, err := parseRecord(rec)
		if err != nil {
			res.rejected = append(res.rejected, rowError{line: line, err: err})
			continue
		}
		res.rows = append(res.rows, row{file: path, line: line, input: in})
	}
}

func parseRecord(rec []string) (coupon.Input, error) {
	var in coupon.Input
	if len(rec) < 3 || len(rec) > len(columns) {
		return in, errors.Errorf("expected 3 to %d fields, got %d", len(columns), len(rec))
	}
	field := func(i int) string {
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	in.Code = coupon.NormalizeCode(field(0))
	if in.Code == "" {
		return in, coupon.ErrCodeRequired
	}
	in.DiscountType = coupon.DiscountType(strings.ToLower(field(1)))

	var err error
	if in.DiscountValue, err = decimal.NewFromString(field(2)); err != nil {
		return in, errors.Wrap(err, columns[2])
	}
	if s := field(3); s != "" {
		if in.MinOrderValue, err = decimal.NewFromString(s); err != nil {
			return in, errors.Wrap(err, columns[3])
		}
	}
	if s := field(4); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return in, errors.Wrap(err, columns[4])
		}
		in.MaxDiscount = decimal.NewNullDecimal(v)
	}
	if s := field(5); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return in, errors.Wrap(err, columns[5])
		}
		in.UsageLimit = &v
	}
	if in.StartDate, err = parseDate(field(6)); err != nil {
		return in, errors.Wrap(err, columns[6])
	}
	if in.EndDate, err = parseDate(field(7)); err != nil {
		return in, errors.Wrap(err, columns[7])
	}

	// Validate against the stored-coupon rules before touching the database.
	if _, err := coupon.New("", in, time.Time{}); err != nil {
		return in, err
	}
	return in, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, errors.Errorf("invalid date %q", s)
}
