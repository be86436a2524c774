package cli

import (
	"context"
	"fmt"

	"github.com/dimz119/project-saeum/database"
	"github.com/dimz119/project-saeum/models"
	"github.com/dimz119/project-saeum/repository"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type seedProduct struct {
	name     string
	slug     string
	sku      string
	category string
	brand    string
	tags     []string
	price    int64
	sale     int64
	stock    int
	featured bool
}

var (
	seedCategories = []models.Category{
		{Name: "Sunglasses", Slug: "sunglasses"},
		{Name: "Glasses", Slug: "glasses"},
		{Name: "Accessories", Slug: "accessories"},
	}
	seedBrands = []models.Brand{
		{Name: "CHIMI", Slug: "chimi", Description: "Minimal acetate frames from Stockholm."},
		{Name: "Ray-Ban", Slug: "rayban"},
		{Name: "Gucci", Slug: "gucci"},
		{Name: "Tom Ford", Slug: "tomford"},
		{Name: "Gentle Monster", Slug: "gentlemonster", Description: "Seoul based eyewear label."},
	}
	seedTags = []models.Tag{
		{Name: "Best", Slug: "best"},
		{Name: "New", Slug: "new"},
		{Name: "Sale", Slug: "sale"},
	}
	seedProducts = []seedProduct{
		{name: "CHIMI 01 Black", slug: "chimi-01-black", sku: "CHIMI-01-BLK", category: "sunglasses", brand: "chimi", tags: []string{"best"}, price: 185000, stock: 30, featured: true},
		{name: "CHIMI 04 Tortoise", slug: "chimi-04-tortoise", sku: "CHIMI-04-TRT", category: "glasses", brand: "chimi", tags: []string{"new"}, price: 169000, stock: 20},
		{name: "Ray-Ban Wayfarer", slug: "rayban-wayfarer", sku: "RB-2140-901", category: "sunglasses", brand: "rayban", tags: []string{"best"}, price: 219000, stock: 25, featured: true},
		{name: "Ray-Ban Round Metal", slug: "rayban-round-metal", sku: "RB-3447-001", category: "glasses", brand: "rayban", tags: []string{"sale"}, price: 239000, sale: 199000, stock: 12},
		{name: "Gucci GG0061S", slug: "gucci-gg0061s", sku: "GG0061S-001", category: "sunglasses", brand: "gucci", price: 520000, stock: 5},
		{name: "Tom Ford FT5401", slug: "tomford-ft5401", sku: "FT5401-052", category: "glasses", brand: "tomford", tags: []string{"new"}, price: 480000, stock: 8},
		{name: "Gentle Monster Lang 01", slug: "gentlemonster-lang-01", sku: "GM-LANG-01", category: "sunglasses", brand: "gentlemonster", tags: []string{"best", "new"}, price: 289000, stock: 15, featured: true},
		{name: "Leather Case", slug: "leather-case", sku: "ACC-CASE-BRN", category: "accessories", tags: []string{"sale"}, price: 45000, sale: 35000, stock: 100},
		{name: "Lens Cleaning Kit", slug: "lens-cleaning-kit", sku: "ACC-CLEAN-01", category: "accessories", price: 12000, stock: 200},
	}
)

func NewSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample eyewear catalog (safe to run repeatedly)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Connect(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			store := repository.NewStore(db)
			created, err := seedCatalog(cmd.Context(), store)
			if err != nil {
				return err
			}
			log.Info("Catalog seeded",
				zap.Int("products_created", created),
				zap.Int("products_total", len(seedProducts)),
			)
			return nil
		},
	}
}

// seedCatalog upserts everything by slug inside one transaction and returns
// how many products were new.
func seedCatalog(ctx context.Context, store *repository.Store) (int, error) {
	created := 0
	err := store.Transaction(ctx, func(tx *repository.Store) error {
		categories := map[string]*models.Category{}
		for i := range seedCategories {
			c := seedCategories[i]
			if err := tx.Products.UpsertCategory(ctx, &c); err != nil {
				return fmt.Errorf("category %s: %w", c.Slug, err)
			}
			categories[c.Slug] = &c
		}
		brands := map[string]*models.Brand{}
		for i := range seedBrands {
			b := seedBrands[i]
			if err := tx.Products.UpsertBrand(ctx, &b); err != nil {
				return fmt.Errorf("brand %s: %w", b.Slug, err)
			}
			brands[b.Slug] = &b
		}
		tags := map[string]models.Tag{}
		for i := range seedTags {
			t := seedTags[i]
			if err := tx.Products.UpsertTag(ctx, &t); err != nil {
				return fmt.Errorf("tag %s: %w", t.Slug, err)
			}
			tags[t.Slug] = t
		}

		for _, sp := range seedProducts {
			p := &models.Product{
				Name:       sp.name,
				Slug:       sp.slug,
				SKU:        sp.sku,
				Price:      decimal.NewFromInt(sp.price),
				Stock:      sp.stock,
				IsActive:   true,
				IsFeatured: sp.featured,
			}
			if sp.sale > 0 {
				p.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(sp.sale))
			}
			if c, ok := categories[sp.category]; ok {
				p.CategoryID = &c.ID
			}
			if b, ok := brands[sp.brand]; ok {
				p.BrandID = &b.ID
			}
			for _, slug := range sp.tags {
				p.Tags = append(p.Tags, tags[slug])
			}

			isNew, err := tx.Products.UpsertProduct(ctx, p)
			if err != nil {
				return fmt.Errorf("product %s: %w", sp.slug, err)
			}
			if isNew {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
