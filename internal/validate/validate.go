// Package validate collects field errors for request input. Services and handlers share it.
package validate

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/shopspring/decimal"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Check folds the non-nil results into one bad-request error, or returns nil.
func Check(results ...*ErrField) error {
	var errs Errs
	for _, r := range results {
		if r != nil {
			errs = append(errs, *r)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return apperr.Wrap(apperr.KindBadRequest, errs, "validation failed")
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MaxLen(field, value string, max int) *ErrField {
	if utf8.RuneCountInString(value) > max {
		return &ErrField{Field: field, Msg: "must be at most " + strconv.Itoa(max) + " characters"}
	}
	return nil
}

func Different(field, a, b string) *ErrField {
	if a != "" && a == b {
		return &ErrField{Field: field, Msg: "must differ"}
	}
	return nil
}

// Amount accepts positive values below models.MaxAmount with at most two fractional digits.
func Amount(field string, v decimal.Decimal) *ErrField {
	if !v.IsPositive() {
		return &ErrField{Field: field, Msg: "must be > 0"}
	}
	if v.GreaterThanOrEqual(models.MaxAmount) {
		return &ErrField{Field: field, Msg: "must be < " + models.MaxAmount.String()}
	}
	if !models.ValidAmount(v) {
		return &ErrField{Field: field, Msg: "at most " + strconv.Itoa(models.AmountScale) + " decimal places"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}
