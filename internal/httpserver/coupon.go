package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type validateCouponRequest struct {
	Code           string   `json:"code" binding:"required"`
	OrderCents     int64    `json:"orderCents"`
	CartCategories []string `json:"cartCategories,omitempty"`
}

func validateCouponHandler(svc CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "code is required")
			return
		}
		res, err := svc.Validate(c.Request.Context(), req.Code, req.OrderCents, req.CartCategories)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func applyCouponHandler(svc CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Code string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "code is required")
			return
		}
		if err := svc.Apply(c.Request.Context(), req.Code); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": true})
	}
}

type couponRequest struct {
	Code                 string          `json:"code"`
	Description          string          `json:"description"`
	DiscountType         string          `json:"discountType"`
	DiscountValue        decimal.Decimal `json:"discountValue"`
	MinimumOrderCents    *int64          `json:"minimumOrderCents"`
	MaximumDiscountCents *int64          `json:"maximumDiscountCents"`
	ExpiresAt            time.Time       `json:"expiresAt"`
	UsageLimit           *int            `json:"usageLimit"`
	IsActive             *bool           `json:"isActive"`
	ApplicableCategories []string        `json:"applicableCategories"`
}

func (r couponRequest) toDomain() domain.Coupon {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return domain.Coupon{
		Code:                 r.Code,
		Description:          r.Description,
		DiscountType:         r.DiscountType,
		DiscountValue:        r.DiscountValue,
		MinimumOrderCents:    r.MinimumOrderCents,
		MaximumDiscountCents: r.MaximumDiscountCents,
		ExpiresAt:            r.ExpiresAt,
		UsageLimit:           r.UsageLimit,
		IsActive:             active,
		ApplicableCategories: r.ApplicableCategories,
	}
}

func adminListCouponsHandler(svc CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		coupons, err := svc.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"coupons": coupons})
	}
}

func adminGetCouponHandler(svc CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		coupon, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, coupon)
	}
}

func adminCreateCouponHandler(svc CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req couponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid coupon payload")
			return
		}
		created, err := svc.Create(c.Request.Context(), req.toDomain())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func adminUpdateCouponHandler(svc CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req couponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid coupon payload")
			return
		}
		coupon := req.toDomain()
		coupon.ID = c.Param("id")
		updated, err := svc.Update(c.Request.Context(), coupon)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func adminDeleteCouponHandler(svc CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
