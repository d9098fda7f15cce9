package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec("s1")
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	claims := NewClaims(42, now, time.Hour)

	token, err := codec.Encode(claims)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *decoded != claims {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, claims)
	}
}

func TestEncodeWireFormat(t *testing.T) {
	codec := NewCodec("s1")
	token, err := codec.Encode(NewClaims(42, time.Unix(1700000000, 0), time.Hour))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if strings.Contains(token, "=") {
		t.Fatal("credential must not contain base64 padding")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(segments[0])
	if err != nil {
		t.Fatalf("decode header segment: %v", err)
	}
	var header map[string]string
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if header["alg"] != "HS256" {
		t.Fatalf("expected HS256 header, got %q", header["alg"])
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		t.Fatalf("decode payload segment: %v", err)
	}
	var payload map[string]int64
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["user_id"] != 42 {
		t.Fatalf("expected user_id 42, got %d", payload["user_id"])
	}
	if payload["iat"] != 1700000000 {
		t.Fatalf("expected iat 1700000000, got %d", payload["iat"])
	}
	if payload["exp"] != 1700003600 {
		t.Fatalf("expected exp 1700003600, got %d", payload["exp"])
	}
}

func TestDecodeRejectsTamperedSignature(t *testing.T) {
	codec := NewCodec("s1")
	token, err := codec.Encode(NewClaims(7, time.Now(), time.Hour))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Flip every position of the signature segment in turn; each variant
	// must fail with a signature error, never decode.
	segments := strings.Split(token, ".")
	for i := 0; i < len(segments[2]); i++ {
		sig := []byte(segments[2])
		if sig[i] == 'A' {
			sig[i] = 'B'
		} else {
			sig[i] = 'A'
		}
		tampered := segments[0] + "." + segments[1] + "." + string(sig)
		if tampered == token {
			continue
		}

		_, err := codec.Decode(tampered)
		if err == nil {
			t.Fatalf("tampered signature at %d decoded successfully", i)
		}
		if !errors.Is(err, ErrBadSignature) && !errors.Is(err, ErrMalformedCredential) {
			t.Fatalf("unexpected error class at %d: %v", i, err)
		}
	}
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	token, err := NewCodec("s1").Encode(NewClaims(7, time.Now(), time.Hour))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, err = NewCodec("s2").Decode(token)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected bad signature, got %v", err)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	codec := NewCodec("s1")
	cases := []string{
		"",
		"onesegment",
		"two.segments",
		"a.b.c.d",
		"!!!.???.###",
	}

	for _, input := range cases {
		_, err := codec.Decode(input)
		if !errors.Is(err, ErrMalformedCredential) {
			t.Fatalf("input %q: expected malformed credential, got %v", input, err)
		}
	}
}

func TestDecodeRejectsForeignAlgorithm(t *testing.T) {
	// An unsigned token claiming alg=none must never be accepted, even with
	// a structurally empty signature.
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"user_id":1,"iat":1,"exp":99999999999}`))
	token := header + "." + payload + "."

	_, err := NewCodec("s1").Decode(token)
	if !errors.Is(err, ErrMalformedCredential) {
		t.Fatalf("expected malformed credential for alg=none, got %v", err)
	}
}

func TestDecodeAllowsExpiredClaims(t *testing.T) {
	codec := NewCodec("s1")
	expired := NewClaims(9, time.Now().Add(-2*time.Hour), time.Hour)

	token, err := codec.Encode(expired)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("expiry is not the codec's concern: %v", err)
	}
	if decoded.UserID != 9 {
		t.Fatalf("unexpected user id %d", decoded.UserID)
	}
}

func TestEncodeRequiresSecret(t *testing.T) {
	if _, err := NewCodec("").Encode(NewClaims(1, time.Now(), time.Hour)); err == nil {
		t.Fatal("expected error when secret missing")
	}
}
