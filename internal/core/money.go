// Package core provides the bookkeeper entities, filters and error taxonomy.
//
// Amounts are integer currency units throughout. This file contains the
// parsing of user supplied amounts into those units.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to integer currency units.
//
// Both dot (12.00) and comma (12,00) separators are accepted, but the value
// must be integral: fractional units are not representable.
//
// Examples:
//
//	ParseAmount("120")    -> 120, nil
//	ParseAmount("120,00") -> 120, nil
//	ParseAmount("-5")     -> -5, nil
//	ParseAmount("12.5")   -> 0, ValidationError
func ParseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, &ValidationError{Entity: "amount", Field: "value", Reason: "is empty"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &ValidationError{Entity: "amount", Field: "value", Reason: "is not a number"}
	}
	if !d.IsInteger() {
		return 0, &ValidationError{Entity: "amount", Field: "value", Reason: "must be a whole number of units"}
	}
	if !d.BigInt().IsInt64() {
		return 0, &ValidationError{Entity: "amount", Field: "value", Reason: "is out of range"}
	}
	return d.IntPart(), nil
}
