package models

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoPendingProduct is returned when a count arrives before any SKU
var ErrNoPendingProduct = errors.New("no product is waiting for a count")

// Discount keys of OrderRecord.Discount
const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

// ClientRecord represents a client registered by an operator
type ClientRecord struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Note      string `json:"note"`
	CreatedAt int64  `json:"dataCreated"`
}

// SalonRecord represents a partner salon
type SalonRecord struct {
	Name      string            `json:"name"`
	Location  string            `json:"location"`
	Photos    map[string]string `json:"photos"` // platform file id -> saved path
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Person    string            `json:"person"`
	Promocode string            `json:"promocode"`
	SocLinks  []string          `json:"socLinks"`
	Note      string            `json:"note"`
}

// NewSalonRecord returns an empty salon with initialized collections
func NewSalonRecord() *SalonRecord {
	return &SalonRecord{
		Photos:   make(map[string]string),
		SocLinks: make([]string, 0),
	}
}

// AddPhoto maps a platform file id to the local path it was saved to
func (s *SalonRecord) AddPhoto(fileID, path string) {
	if s.Photos == nil {
		s.Photos = make(map[string]string)
	}
	s.Photos[fileID] = path
}

// AddSocialLink appends a social network link
func (s *SalonRecord) AddSocialLink(link string) {
	s.SocLinks = append(s.SocLinks, link)
}

// Product is a single order line
type Product struct {
	SKU   string `json:"sku"`
	Count int    `json:"count"`
}

// OrderRecord accumulates an order while the operator walks the product loop.
//
// The last product with a zero count is the item currently being filled in;
// setting its count closes it so the next SetSKU starts a new line.
type OrderRecord struct {
	Products      []Product      `json:"products"`
	Discount      map[string]int `json:"discount"`
	PaymentMethod string         `json:"payment_method"`
}

// NewOrderRecord returns an empty order
func NewOrderRecord() *OrderRecord {
	return &OrderRecord{
		Products: make([]Product, 0),
		Discount: make(map[string]int),
	}
}

// SetSKU sets the SKU of the current line, opening a new one if the previous is complete
func (o *OrderRecord) SetSKU(sku string) {
	if n := len(o.Products); n > 0 && o.Products[n-1].Count == 0 {
		o.Products[n-1].SKU = sku
		return
	}
	o.Products = append(o.Products, Product{SKU: sku})
}

// SetCount closes the current line with the given quantity
func (o *OrderRecord) SetCount(count int) error {
	n := len(o.Products)
	if n == 0 || o.Products[n-1].Count != 0 {
		return ErrNoPendingProduct
	}
	o.Products[n-1].Count = count
	return nil
}

// CompleteProducts returns the lines that have both SKU and count set
func (o *OrderRecord) CompleteProducts() []Product {
	products := make([]Product, 0, len(o.Products))
	for _, p := range o.Products {
		if p.SKU != "" && p.Count > 0 {
			products = append(products, p)
		}
	}
	return products
}

// SetDiscountPercent records the percent coupon chosen at checkout
func (o *OrderRecord) SetDiscountPercent(value int) {
	o.ensureDiscount()
	o.Discount[DiscountPercent] = value
}

// SetDiscountFixed records a fixed amount applied after the order was created
func (o *OrderRecord) SetDiscountFixed(value int) {
	o.ensureDiscount()
	o.Discount[DiscountFixed] = value
}

// DiscountPercent returns the percent discount, if one was chosen
func (o *OrderRecord) DiscountPercent() (int, bool) {
	v, ok := o.Discount[DiscountPercent]
	return v, ok
}

func (o *OrderRecord) ensureDiscount() {
	if o.Discount == nil {
		o.Discount = make(map[string]int)
	}
}

// CouponLine is a coupon applied to a remote order
type CouponLine struct {
	ID     int64  `json:"id,omitempty"`
	Code   string `json:"code"`
	Amount string `json:"discount,omitempty"`
}

// RemoteOrder is the handle returned by the shop once an order exists there
type RemoteOrder struct {
	ID          int64        `json:"id"`
	Total       string       `json:"total"`
	CouponLines []CouponLine `json:"coupon_lines"`
}

// Entry wraps a record under a fresh UUID key, the shape stored by repositories
func Entry(record any) map[string]any {
	return map[string]any{uuid.NewString(): record}
}

// DocumentType names a PDF generated by the shop for an order
type DocumentType string

// Order documents sent after checkout
const (
	DocumentInvoice DocumentType = "invoice"
	DocumentReceipt DocumentType = "receipt"
)
