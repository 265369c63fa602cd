package woo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ensureFixedCoupon returns the code of the fixed coupon for amount, creating it on first use
func (c *Client) ensureFixedCoupon(ctx context.Context, amount string) (string, error) {
	code := fixedCouponPrefix + amount

	var found []coupon
	if err := c.do(ctx, http.MethodGet, "coupons", url.Values{"code": {code}}, nil, &found); err != nil {
		return "", fmt.Errorf("failed to look up coupon: %w", err)
	}
	if len(found) > 0 {
		return code, nil
	}

	req := couponRequest{Code: code, DiscountType: "fixed_cart", Amount: amount}
	if err := c.do(ctx, http.MethodPost, "coupons", nil, req, nil); err != nil {
		return "", fmt.Errorf("failed to create coupon: %w", err)
	}
	return code, nil
}
