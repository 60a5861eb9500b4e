package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidatePositiveAmount checks that an amount is positive (in points).
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateTicketPrice checks that a ticket price is not negative.
func ValidateTicketPrice(price int64) error {
	if price < 0 {
		return fmt.Errorf("ticket price must not be negative, got %d", price)
	}
	return nil
}

// ValidateTicketNumber checks that a ticket number is in range.
func ValidateTicketNumber(number int64) error {
	if number <= 0 {
		return fmt.Errorf("ticket number must be positive, got %d", number)
	}
	return nil
}

// ParsePointsContent parses the content of a points prize as an integer credit.
func ParsePointsContent(content string) (int64, error) {
	s := strings.TrimSpace(content)
	if s == "" {
		return 0, fmt.Errorf("points prize content is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("points prize content %q is not an integer", content)
	}
	if err := ValidatePositiveAmount(n); err != nil {
		return 0, err
	}
	return n, nil
}

// ValidatePrizeContent checks type-specific prize content and returns the
// ledger amount (0 for physical prizes).
func ValidatePrizeContent(t PrizeType, content string) (int64, error) {
	switch t {
	case PrizePoints:
		return ParsePointsContent(content)
	case PrizePhysical:
		if strings.TrimSpace(content) == "" {
			return 0, fmt.Errorf("physical prize content is required")
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown prize type: %s", t)
	}
}
