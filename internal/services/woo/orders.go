package woo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"salonbot/internal/models"

	"go.uber.org/zap"
)

// FindProductID returns the id of the product with the given SKU; ok is false when the shop has none
func (c *Client) FindProductID(ctx context.Context, sku string) (int64, bool, error) {
	var products []product
	if err := c.do(ctx, http.MethodGet, "products", url.Values{"sku": {sku}}, nil, &products); err != nil {
		return 0, false, err
	}
	if len(products) == 0 || products[0].ID == 0 {
		return 0, false, nil
	}
	return products[0].ID, true, nil
}

// CreateOrder creates an unpaid order for the complete product lines of record.
// Unknown SKUs are skipped; ErrNoProducts is returned if none resolve.
func (c *Client) CreateOrder(ctx context.Context, record models.OrderRecord) (*models.RemoteOrder, error) {
	items, err := c.lineItems(ctx, record.CompleteProducts())
	if err != nil {
		return nil, err
	}

	req := orderRequest{
		PaymentMethod:      defaultPaymentMethod,
		PaymentMethodTitle: defaultPaymentMethodTitle,
		Billing:            billing{FirstName: billingFirstName},
		LineItems:          items,
	}
	if percent, ok := record.DiscountPercent(); ok && percent > 0 {
		req.CouponLines = []couponCode{{Code: percentCouponPrefix + strconv.Itoa(percent)}}
	}

	var created order
	if err := c.do(ctx, http.MethodPost, "orders", nil, req, &created); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if created.ID == 0 {
		return nil, fmt.Errorf("%w: order without id", ErrInvalidResponse)
	}

	if record.PaymentMethod != "" {
		update := orderUpdate{MetaData: []metaData{{Key: "payment_method", Value: record.PaymentMethod}}}
		if err := c.do(ctx, http.MethodPut, orderResource(created.ID), nil, update, nil); err != nil {
			return nil, fmt.Errorf("failed to set payment method: %w", err)
		}
	}

	c.logger.Info("Order created",
		zap.Int64("order_id", created.ID),
		zap.Int("line_items", len(items)),
		zap.String("total", created.Total))
	return &created, nil
}

// ApplyFixedCoupon adds a fixed_cart coupon of amount to the order, creating the coupon if the shop lacks it.
// existing are the coupons already on the order; they are kept.
func (c *Client) ApplyFixedCoupon(ctx context.Context, orderID int64, existing []models.CouponLine, amount string) (*models.RemoteOrder, error) {
	if orderID == 0 || amount == "" {
		return nil, ErrInvalidArgument
	}

	code, err := c.ensureFixedCoupon(ctx, amount)
	if err != nil {
		return nil, err
	}

	lines := make([]couponCode, 0, len(existing)+1)
	for _, line := range existing {
		lines = append(lines, couponCode{Code: line.Code})
	}
	lines = append(lines, couponCode{Code: code})

	var updated order
	if err := c.do(ctx, http.MethodPut, orderResource(orderID), nil, orderUpdate{CouponLines: lines}, &updated); err != nil {
		return nil, fmt.Errorf("failed to apply coupon: %w", err)
	}
	return &updated, nil
}

func (c *Client) lineItems(ctx context.Context, products []models.Product) ([]lineItem, error) {
	items := make([]lineItem, 0, len(products))
	for _, p := range products {
		id, ok, err := c.FindProductID(ctx, p.SKU)
		if err != nil {
			return nil, fmt.Errorf("failed to look up sku %s: %w", p.SKU, err)
		}
		if !ok {
			c.logger.Warn("Skipping unknown SKU", zap.String("sku", p.SKU))
			continue
		}
		items = append(items, lineItem{ProductID: id, Quantity: p.Count})
	}
	if len(items) == 0 {
		return nil, ErrNoProducts
	}
	return items, nil
}

func orderResource(id int64) string {
	return "orders/" + strconv.FormatInt(id, 10)
}
