package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type cartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

func getCartHandler(svc CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := svc.Get(c.Request.Context(), currentPrincipal(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func addCartItemHandler(svc CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "productId and quantity are required")
			return
		}
		cart, err := svc.Add(c.Request.Context(), currentPrincipal(c).UserID, req.ProductID, req.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func setCartItemHandler(svc CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Quantity *int `json:"quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
			respondBadRequest(c, "quantity is required")
			return
		}
		cart, err := svc.SetQuantity(c.Request.Context(), currentPrincipal(c).UserID, c.Param("productId"), *req.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func removeCartItemHandler(svc CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := svc.Remove(c.Request.Context(), currentPrincipal(c).UserID, c.Param("productId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func clearCartHandler(svc CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := svc.Clear(c.Request.Context(), currentPrincipal(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// parsePositiveInt is shared by the paginated list handlers.
func parsePositiveInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
