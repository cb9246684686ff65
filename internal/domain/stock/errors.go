package stock

import (
	"errors"

	"github.com/example/material-stock/internal/domain/ledger"
)

var (
	ErrStockNotFound       = errors.New("stock not found")
	ErrUnknownStatus       = errors.New("unknown stock status")
	ErrInvalidTransition   = errors.New("transition not allowed")
	ErrStatusExists        = errors.New("stock already holds this status")
	ErrIncomingImmutable   = errors.New("received stock cannot be edited")
	ErrPackageExists       = errors.New("order already has a package at this profile")
	ErrDeleteNotPurchase   = errors.New("only purchase stocks can be deleted")
	ErrDeleteMultipleLines = errors.New("only single-line purchases can be deleted")
	ErrDeleteOrderLinked   = errors.New("order-linked stocks cannot be deleted")
	ErrConcurrentEdit      = errors.New("stock was modified concurrently")
	ErrInsufficientReserve = errors.New("not enough reserved stock at source")
	ErrArrivalMismatch     = errors.New("arrival lines differ from the transferred goods")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrStockNotFound, "stock.not_found"},
	{ErrUnknownStatus, "stock.unknown_status"},
	{ErrInvalidTransition, "stock.invalid_transition"},
	{ErrStatusExists, "stock.status_exists"},
	{ErrIncomingImmutable, "stock.incoming_immutable"},
	{ErrPackageExists, "stock.package_exists"},
	{ErrDeleteNotPurchase, "stock.delete_not_purchase"},
	{ErrDeleteMultipleLines, "stock.delete_multiple_lines"},
	{ErrDeleteOrderLinked, "stock.delete_order_linked"},
	{ErrConcurrentEdit, "stock.concurrent_edit"},
	{ErrInsufficientReserve, "stock.insufficient_reserve"},
	{ErrArrivalMismatch, "stock.arrival_mismatch"},
	{ledger.ErrStaleRow, "ledger.stale_row"},
	{ledger.ErrRowNotFound, "ledger.row_not_found"},
}

// ErrorCode maps an error returned by Service to a stable identifier
// suitable for callers that only display the outcome.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if ledger.IsValidation(err) {
		return "stock.validation"
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "stock.internal"
}
