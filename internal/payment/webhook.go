package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types delivered by the gateway.
const (
	EventIntentSucceeded      = "payment_intent.succeeded"
	EventIntentFailed         = "payment_intent.payment_failed"
	EventIntentCanceled       = "payment_intent.canceled"
	EventIntentRequiresAction = "payment_intent.requires_action"
)

// SignatureTolerance bounds how stale a signed webhook delivery may be.
const SignatureTolerance = 5 * time.Minute

var (
	ErrBadSignature = errors.New("webhook signature verification failed")
)

// Event is one intent lifecycle notification.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object Intent `json:"object"`
	} `json:"data"`
}

// ParseEvent verifies the signature header against the raw payload and the
// shared signing secret, then decodes the event. Nothing is decoded before
// the signature checks out.
func ParseEvent(payload []byte, sigHeader, secret string, now time.Time) (*Event, error) {
	if err := VerifySignature(payload, sigHeader, secret, now); err != nil {
		return nil, err
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	return &ev, nil
}

// VerifySignature checks a header of the form "t=<unix>,v1=<hex hmac>".
// The hmac is SHA-256 over "<unix>.<payload>" keyed with the signing secret.
func VerifySignature(payload []byte, sigHeader, secret string, now time.Time) error {
	var ts string
	var sigs []string
	for _, part := range strings.Split(sigHeader, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == "" || len(sigs) == 0 {
		return ErrBadSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	stamp := time.Unix(unix, 0)
	if stamp.Before(now.Add(-SignatureTolerance)) || stamp.After(now.Add(SignatureTolerance)) {
		return fmt.Errorf("timestamp outside tolerance: %w", ErrBadSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range sigs {
		got, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return nil
		}
	}
	return ErrBadSignature
}
