package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Order tracking tokens let a customer view their order status page without an
// account: HMAC over "<tenantCode>:<orderNumber>" keyed by a server secret.

func CreateOrderTrackingToken(secret, tenantCode, orderNumber string) string {
	payload := base64url([]byte(tenantCode + ":" + orderNumber))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return payload + "." + base64url(mac.Sum(nil))
}

func VerifyOrderTrackingToken(secret, token, tenantCode, orderNumber string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(parts[0]))
	expected := mac.Sum(nil)

	actual, err := base64urlDecode(parts[1])
	if err != nil || !hmac.Equal(actual, expected) {
		return false
	}

	payload, err := base64urlDecode(parts[0])
	if err != nil {
		return false
	}
	return string(payload) == tenantCode+":"+orderNumber
}

func base64url(input []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(input), "=")
}

func base64urlDecode(input string) ([]byte, error) {
	if m := len(input) % 4; m != 0 {
		input += strings.Repeat("=", 4-m)
	}
	return base64.URLEncoding.DecodeString(input)
}
