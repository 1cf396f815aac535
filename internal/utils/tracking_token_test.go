package utils

import "testing"

func TestOrderTrackingTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token := CreateOrderTrackingToken(secret, "tablewood", "TABLEWOOD-00042")

	if !VerifyOrderTrackingToken(secret, token, "tablewood", "TABLEWOOD-00042") {
		t.Fatal("expected token to verify for its own order")
	}
	if VerifyOrderTrackingToken(secret, token, "tablewood", "TABLEWOOD-00043") {
		t.Error("token verified for a different order number")
	}
	if VerifyOrderTrackingToken(secret, token, "otherplace", "TABLEWOOD-00042") {
		t.Error("token verified for a different tenant")
	}
	if VerifyOrderTrackingToken("wrong-secret", token, "tablewood", "TABLEWOOD-00042") {
		t.Error("token verified with the wrong secret")
	}
}

func TestOrderTrackingTokenTampered(t *testing.T) {
	secret := "test-secret"
	token := CreateOrderTrackingToken(secret, "tablewood", "TABLEWOOD-00042")

	// Forge a payload for a different order but keep the original signature.
	forged := base64url([]byte("tablewood:TABLEWOOD-00099")) + "." + token[len(token)-43:]
	if VerifyOrderTrackingToken(secret, forged, "tablewood", "TABLEWOOD-00099") {
		t.Error("forged payload verified")
	}

	cases := []string{
		"",
		"justonepart",
		"too.many.parts",
		"!!!.???",
	}
	for _, malformed := range cases {
		if VerifyOrderTrackingToken(secret, malformed, "tablewood", "TABLEWOOD-00042") {
			t.Errorf("malformed token %q verified", malformed)
		}
	}
}
