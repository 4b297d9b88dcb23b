package httpserver

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"storefront/internal/payment"
)

// SignatureHeader carries the gateway's webhook signature.
const SignatureHeader = "Payment-Signature"

// webhookHandler receives payment intent lifecycle events. Signature
// failures are rejected before any processing; once a delivery is verified
// it is always acknowledged, even if processing fails, so the gateway stops
// retrying. Processing failures are logged for operational follow-up.
func webhookHandler(logger *log.Logger, svc CheckoutService, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
		if err != nil {
			respondBadRequest(c, "unable to read payload")
			return
		}

		ev, err := payment.ParseEvent(body, c.GetHeader(SignatureHeader), secret, time.Now())
		if err != nil {
			logger.Printf("webhook: rejected delivery: %v", err)
			respondBadRequest(c, "invalid signature")
			return
		}

		if err := svc.HandleEvent(c.Request.Context(), ev); err != nil {
			// No caller to answer on this path; ack and record the failure.
			logger.Printf("webhook: event %s (%s) processing failed: %v", ev.ID, ev.Type, err)
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
