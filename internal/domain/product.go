package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const CurrencyINR = "INR"

type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

type Image struct {
	ID      string `json:"id,omitempty"`
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Variant struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Price             Money            `json:"price"`
	CompareAtPrice    *Money           `json:"compareAtPrice,omitempty"`
	AvailableForSale  bool             `json:"availableForSale"`
	QuantityAvailable *int             `json:"quantityAvailable,omitempty"`
	SelectedOptions   []SelectedOption `json:"selectedOptions,omitempty"`
	Image             *Image           `json:"image,omitempty"`
}

type CollectionRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// Attributes carries the merchandising facets the mock catalog filters on.
type Attributes struct {
	Category     string  `json:"category,omitempty"`
	Color        string  `json:"color,omitempty"`
	Fabric       string  `json:"fabric,omitempty"`
	Occasion     string  `json:"occasion,omitempty"`
	Region       string  `json:"region,omitempty"`
	Size         string  `json:"size,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	IsNewArrival bool    `json:"isNewArrival,omitempty"`
}

type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Handle      string          `json:"handle"`
	Description string          `json:"description,omitempty"`
	Vendor      string          `json:"vendor,omitempty"`
	ProductType string          `json:"productType,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Images      []Image         `json:"images,omitempty"`
	Variants    []Variant       `json:"variants,omitempty"`
	Collections []CollectionRef `json:"collections,omitempty"`
	Attributes  Attributes      `json:"attributes"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt,omitempty"`
}

// Purchasable reports whether the variant can be sold right now.
func (v Variant) Purchasable() bool {
	if !v.AvailableForSale {
		return false
	}
	return v.QuantityAvailable == nil || *v.QuantityAvailable > 0
}

// PurchasableVariant returns the variant a one-click add uses: the first one,
// provided it can be sold.
func (p Product) PurchasableVariant() (Variant, bool) {
	if len(p.Variants) == 0 || !p.Variants[0].Purchasable() {
		return Variant{}, false
	}
	return p.Variants[0], true
}

// Variant looks a variant up by id.
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// SelectVariant returns the named variant, or the first one when variantID is
// empty. Unknown and unsellable variants are an UnavailableError.
func (p Product) SelectVariant(variantID string) (Variant, error) {
	if variantID == "" {
		v, ok := p.PurchasableVariant()
		if !ok {
			return Variant{}, &UnavailableError{ProductID: p.ID, Reason: "out of stock"}
		}
		return v, nil
	}

	v, ok := p.Variant(variantID)
	if !ok {
		return Variant{}, &UnavailableError{ProductID: p.ID, Reason: "unknown variant " + variantID}
	}
	if !v.Purchasable() {
		return Variant{}, &UnavailableError{ProductID: p.ID, Reason: "variant " + variantID + " is out of stock"}
	}
	return v, nil
}

// Price is the price of the first variant, zero when there is none.
func (p Product) Price() decimal.Decimal {
	if len(p.Variants) == 0 {
		return decimal.Zero
	}
	return p.Variants[0].Price.Amount
}

func (p Product) FirstImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// LineFor snapshots the product into a line item for variant v.
func (p Product) LineFor(v Variant, quantity int) LineItem {
	image := p.FirstImageURL()
	if v.Image != nil && v.Image.URL != "" && image == "" {
		image = v.Image.URL
	}
	return LineItem{
		ProductID: p.ID,
		VariantID: v.ID,
		Handle:    p.Handle,
		Title:     p.Title,
		UnitPrice: v.Price.Amount,
		ImageURL:  image,
		Quantity:  quantity,
	}
}

type Collection struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Handle       string    `json:"handle"`
	Description  string    `json:"description,omitempty"`
	Image        *Image    `json:"image,omitempty"`
	ProductCount int       `json:"productCount"`
	Products     []Product `json:"products,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor,omitempty"`
	EndCursor       string `json:"endCursor,omitempty"`
}
