// Command seed-db loads the sample catalog, coupons and an admin API key.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/abstore/internal/domain/auth"
	"github.com/xenking/abstore/internal/domain/coupon"
	"github.com/xenking/abstore/internal/domain/product"
	"github.com/xenking/abstore/internal/repository"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or ABSTORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ABSTORE_API_KEY_PEPPER env)")
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
	if apiKey == "" {
		apiKey = os.Getenv("ABSTORE_SEED_API_KEY")
	}
	if apiKey == "" {
		lg.Fatal("API key is required: set --api-key or ABSTORE_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ABSTORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s := seeder{lg: lg}
	if err := s.run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed")
}

type seeder struct {
	lg *zap.Logger
}

func (s seeder) run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	s.lg.Info("Connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	s.lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := s.seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := s.seedCoupons(ctx, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := s.seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func (s seeder) seedProducts(ctx context.Context, repo *repository.ProductRepository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	products, err := decodeProducts(data)
	if err != nil {
		return errors.Wrap(err, "parse products")
	}

	if err := repo.Upsert(ctx, products); err != nil {
		return err
	}
	s.lg.Info("Upserted products", zap.Int("count", len(products)), zap.String("path", path))
	return nil
}

// decodeProducts parses the catalog file: an array of objects with id, name,
// description, price, category, image and countInStock.
func decodeProducts(data []byte) ([]product.Product, error) {
	var products []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				p.ID, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "description":
				p.Description, err = d.Str()
			case "price":
				var n jx.Num
				if n, err = d.Num(); err == nil {
					p.Price, err = decimal.NewFromString(n.String())
				}
			case "category":
				p.Category, err = d.Str()
			case "image":
				p.Image, err = d.Str()
			case "countInStock":
				p.CountInStock, err = d.Int()
			default:
				return d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return err
		}
		if p.ID == "" {
			return errors.Errorf("product %d: id is required", len(products))
		}
		products = append(products, p)
		return nil
	})
	return products, err
}

func sampleCoupons() []coupon.Coupon {
	limit := 100
	return []coupon.Coupon{
		{
			Code:          "SAVE10",
			DiscountType:  coupon.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(10),
		},
		{
			Code:          "FLAT500",
			DiscountType:  coupon.DiscountAmount,
			DiscountValue: decimal.NewFromInt(500),
			MinOrderValue: decimal.NewFromInt(5000),
		},
		{
			Code:          "WELCOME20",
			DiscountType:  coupon.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(20),
			MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(3000)),
			UsageLimit:    &limit,
		},
	}
}

func (s seeder) seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	now := time.Now().UTC()
	for _, c := range sampleCoupons() {
		c.ID = uuid.New().String()
		c.Active = true
		c.CreatedAt, c.UpdatedAt = now, now
		if err := repo.Upsert(ctx, &c); err != nil {
			return err
		}
		s.lg.Info("Upserted coupon", zap.String("code", c.Code))
	}
	return nil
}

func (s seeder) seedAPIKey(ctx context.Context, repo *repository.APIKeyRepository, key, pepper string) error {
	info := auth.APIKeyInfo{
		ID:      "default-admin",
		KeyHash: auth.HashKey(pepper, key),
		Name:    "Default admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}
	if err := repo.Save(ctx, info); err != nil {
		return err
	}
	s.lg.Info("Upserted API key", zap.String("id", info.ID), zap.String("name", info.Name))
	return nil
}
