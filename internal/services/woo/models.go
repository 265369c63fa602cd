package woo

import "salonbot/internal/models"

const (
	percentCouponPrefix = "tgbot_yonka_"
	fixedCouponPrefix   = "tgbot_fixed_"

	defaultPaymentMethod      = "stripe"
	defaultPaymentMethodTitle = "Credit Card"
	billingFirstName          = "Order from the Telegram Bot"
)

type billing struct {
	FirstName string `json:"first_name"`
}

type lineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type couponCode struct {
	Code string `json:"code"`
}

type metaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type orderRequest struct {
	PaymentMethod      string       `json:"payment_method"`
	PaymentMethodTitle string       `json:"payment_method_title"`
	SetPaid            bool         `json:"set_paid"`
	Billing            billing      `json:"billing"`
	LineItems          []lineItem   `json:"line_items"`
	CouponLines        []couponCode `json:"coupon_lines,omitempty"`
}

type orderUpdate struct {
	CouponLines []couponCode `json:"coupon_lines,omitempty"`
	MetaData    []metaData   `json:"meta_data,omitempty"`
}

type couponRequest struct {
	Code         string `json:"code"`
	DiscountType string `json:"discount_type"`
	Amount       string `json:"amount"`
}

type product struct {
	ID  int64  `json:"id"`
	SKU string `json:"sku"`
}

type coupon struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// order is the subset of the WooCommerce order resource the bot reads
type order = models.RemoteOrder
