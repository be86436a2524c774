package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups products; categories may nest one level under a parent.
type Category struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(100);not null" json:"name"`
	Slug      string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Brand struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	LogoKey     string    `gorm:"type:varchar(255)" json:"logo_key,omitempty"` // S3 object key under brands/
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type Tag struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(50);not null" json:"name"`
	Slug string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Product is a sellable item. Stock is only ever lowered by checkout
// reconciliation, through a conditional update that cannot go below zero.
type Product struct {
	ID               uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string              `gorm:"type:varchar(200);not null" json:"name"`
	Slug             string              `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug"`
	Description      string              `gorm:"type:text" json:"description,omitempty"`
	ShortDescription string              `gorm:"type:varchar(500)" json:"short_description,omitempty"`
	Price            decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"price"`
	SalePrice        decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"sale_price"`
	SKU              string              `gorm:"column:sku;type:varchar(100);uniqueIndex;not null" json:"sku"`
	Stock            int                 `gorm:"not null;check:chk_products_stock,stock >= 0" json:"stock"`
	IsActive         bool                `gorm:"not null;index" json:"is_active"`
	IsFeatured       bool                `gorm:"not null" json:"is_featured"`
	CategoryID       *uuid.UUID          `gorm:"type:uuid;index" json:"category_id,omitempty"`
	BrandID          *uuid.UUID          `gorm:"type:uuid;index" json:"brand_id,omitempty"`
	Category         *Category           `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Brand            *Brand              `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Tags             []Tag               `gorm:"many2many:product_tags;" json:"tags,omitempty"`
	Images           []ProductImage      `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CurrentPrice is the effective price: the sale price when one is set, else the list price.
func (p *Product) CurrentPrice() decimal.Decimal {
	if p.SalePrice.Valid && p.SalePrice.Decimal.IsPositive() {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// Purchasable reports whether qty units can be put into a checkout right now.
func (p *Product) Purchasable(qty int) bool {
	return p.IsActive && qty > 0 && p.Stock >= qty
}

type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	ImageKey  string    `gorm:"type:varchar(255);not null" json:"image_key"`
	AltText   string    `gorm:"type:varchar(200)" json:"alt_text,omitempty"`
	IsMain    bool      `gorm:"not null" json:"is_main"`
	SortOrder int       `gorm:"not null" json:"sort_order"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
