package catalog

import (
	"errors"
	"fmt"
	"strings"

	"claimdesk/apperr"
)

// ErrInvalidMobile signals a lookup key that is not exactly ten digits.
var ErrInvalidMobile = errors.New("catalog: please enter a valid 10-digit mobile number")

// ValidMobile reports whether s, once trimmed, is exactly ten ASCII digits.
func ValidMobile(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Find returns the rows registered under mobile, in sheet order. The key is
// compared by trimmed string equality only. An invalid key returns
// ErrInvalidMobile without scanning; no match returns an empty slice.
func (c *Catalog) Find(mobile string) ([]Row, error) {
	mobile = strings.TrimSpace(mobile)
	if !ValidMobile(mobile) {
		return nil, apperr.Validation("catalog: find", ErrInvalidMobile)
	}

	out := []Row{}
	for _, r := range c.Rows() {
		if strings.TrimSpace(r.Mobile) == mobile {
			out = append(out, r)
		}
	}
	return out, nil
}

// Display is the selection label for a row.
func Display(r Row) string {
	return fmt.Sprintf("Invoice: %s | Model: %s | Serial: %s | OSID: %s", r.Invoice, r.Model, r.Serial, r.OSID)
}

// Customer returns the customer name on the first row, or "Unknown".
func Customer(rows []Row) string {
	if len(rows) == 0 || strings.TrimSpace(rows[0].Customer) == "" {
		return "Unknown"
	}
	return rows[0].Customer
}
