package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutsvc "storefront/internal/service/checkout"
)

func createIntentHandler(svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutsvc.CreateIntentInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid checkout payload")
			return
		}
		res, err := svc.CreateIntent(c.Request.Context(), currentPrincipal(c).UserID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func confirmCheckoutHandler(svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			IntentID string `json:"intentId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "intentId is required")
			return
		}
		order, err := svc.ConfirmClient(c.Request.Context(), currentPrincipal(c).UserID, req.IntentID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}
