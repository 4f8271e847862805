package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestConstructEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","api_version":"2020-08-27","data":{"object":{"id":"cs_1"}}}`)

	event, err := ConstructEvent(payload, sign(payload, "whsec_test", time.Now()), "whsec_test")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "checkout.session.completed", string(event.Type))

	_, err = ConstructEvent(payload, sign(payload, "whsec_other", time.Now()), "whsec_test")
	assert.Error(t, err)

	_, err = ConstructEvent(payload, sign(payload, "whsec_test", time.Now().Add(-time.Hour)), "whsec_test")
	assert.Error(t, err, "stale timestamps are rejected")

	_, err = ConstructEvent(payload, "garbage", "whsec_test")
	assert.Error(t, err)
}

func TestStripeGateway_NotConfigured(t *testing.T) {
	g := NewStripeGateway("")

	_, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = g.CreateIdentitySession(context.Background(), IdentityRequest{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
