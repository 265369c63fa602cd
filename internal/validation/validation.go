package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultSKUPattern matches the reference number printed on product labels
const DefaultSKUPattern = `(?i)Réf\.\s*(\d+)`

var (
	validate      = validator.New()
	promocodeExpr = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	amountExpr    = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// Email reports whether s is a local@domain address
func Email(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// Phone reports whether s is a non-empty string of ASCII digits
func Phone(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Promocode reports whether s contains only letters, digits, hyphens and underscores
func Promocode(s string) bool {
	return promocodeExpr.MatchString(s)
}

// Quantity parses a positive product count
func Quantity(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Percent parses answers like "20%" or "20" into an integer in [0, 100]
func Percent(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}

// Amount normalizes a decimal comma to a period and checks the result is a
// positive plain decimal. The normalized string is returned for use with remote APIs.
func Amount(s string) (string, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if !amountExpr.MatchString(s) {
		return "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return "", false
	}
	return s, true
}

// SKUExtractor pulls a product reference number out of recognized label text
type SKUExtractor struct {
	pattern *regexp.Regexp
}

// NewSKUExtractor compiles pattern, which must have exactly one capture group
func NewSKUExtractor(pattern string) (*SKUExtractor, error) {
	if pattern == "" {
		pattern = DefaultSKUPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid SKU pattern: %w", err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("SKU pattern must have exactly one capture group, got %d", re.NumSubexp())
	}
	return &SKUExtractor{pattern: re}, nil
}

// MustSKUExtractor is NewSKUExtractor for patterns known at compile time
func MustSKUExtractor(pattern string) *SKUExtractor {
	e, err := NewSKUExtractor(pattern)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns the first reference number found in text
func (e *SKUExtractor) Extract(text string) (string, bool) {
	m := e.pattern.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
