package handler

import (
	"errors"
	"net/http"

	"github.com/eaglebank/ledger/internal/ledgererr"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/gin-gonic/gin"
)

// respondWithLedgerError maps engine errors to responses. Anything it does
// not recognise is a server error reported with fallback.
func respondWithLedgerError(c *gin.Context, err error, fallback string) {
	var verr *ledgererr.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.RespondWithValidationError(c, []middleware.ValidationError{{
			Field:   verr.Field,
			Message: verr.Message,
			Type:    "invalid",
		}})
	case errors.Is(err, ledgererr.ErrAccountNotFound):
		middleware.RespondWithError(c, http.StatusBadRequest, "Account not found")
	case errors.Is(err, ledgererr.ErrInsufficientFunds):
		middleware.RespondWithError(c, http.StatusBadRequest, "Insufficient funds")
	case errors.Is(err, ledgererr.ErrTransactionNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Transaction not found")
	default:
		_ = c.Error(err)
		middleware.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}
