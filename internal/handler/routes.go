package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the health check and the /api surface on r.
func RegisterRoutes(r gin.IRouter, accounts *AccountHandler, transactions *TransactionHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/accounts")
	{
		api.GET("", accounts.ListAccounts)
		api.GET("/:id", accounts.GetAccount)
		api.POST("/:id/transactions", transactions.CreateTransaction)
		api.GET("/:id/transactions", transactions.ListTransactions)
		api.GET("/:id/transactions/:transactionId", transactions.GetTransaction)
	}
}
