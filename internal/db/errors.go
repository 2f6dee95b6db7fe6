package db

import (
	"context"
	"errors"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation  = "23505"
	codeCheckViolation   = "23514"
	codeForeignKey       = "23503"
	codeInvalidText      = "22P02"
	codeNumericOverflow  = "22003"
	codeLockNotAvailable = "55P03"
	codeQueryCanceled    = "57014"
)

// Classify maps driver errors onto apperr kinds. what names the failing operation.
func Classify(err error, what string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, err, what+": not found")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindLockTimeout, err, what)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Wrap(apperr.KindDuplicateRequest, err, what+": already exists")
		case codeCheckViolation:
			return apperr.Wrap(apperr.KindInsufficientFunds, err, what)
		case codeForeignKey:
			return apperr.Wrap(apperr.KindNotFound, err, what+": referenced row missing")
		case codeInvalidText:
			return apperr.Wrap(apperr.KindBadRequest, err, what+": malformed identifier")
		case codeNumericOverflow:
			return apperr.Wrap(apperr.KindBadRequest, err, what+": amount out of range")
		case codeLockNotAvailable, codeQueryCanceled:
			return apperr.Wrap(apperr.KindLockTimeout, err, what)
		}
		return apperr.Wrap(apperr.KindInternal, err, what)
	}
	return apperr.Wrap(apperr.KindStoreUnavailable, err, what)
}
