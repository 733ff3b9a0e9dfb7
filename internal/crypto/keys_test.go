// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

package crypto

import (
	"testing"
)

func TestPublicKey_EncodeDecodeRoundTrip(t *testing.T) {
	priv, _ := sharedKeys(t)

	encoded, err := EncodePublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("EncodePublicKey() error = %v", err)
	}

	pub, err := DecodePublicKey(encoded)
	if err != nil {
		t.Fatalf("DecodePublicKey() error = %v", err)
	}

	if pub.N.Cmp(priv.PublicKey.N) != 0 || pub.E != priv.PublicKey.E {
		t.Error("decoded public key differs from the original")
	}
}

func TestDecodePublicKey_RejectsGarbage(t *testing.T) {
	if _, err := DecodePublicKey("not base64!!"); err == nil {
		t.Error("DecodePublicKey() accepted invalid base64")
	}
	if _, err := DecodePublicKey("bm90IGEga2V5"); err == nil {
		t.Error("DecodePublicKey() accepted non-DER bytes")
	}
}

func TestPrivateKey_MarshalParseRoundTrip(t *testing.T) {
	priv, _ := sharedKeys(t)

	der, err := MarshalPrivateKey(priv)
	if err != nil {
		t.Fatalf("MarshalPrivateKey() error = %v", err)
	}

	got, err := ParsePrivateKey(der)
	if err != nil {
		t.Fatalf("ParsePrivateKey() error = %v", err)
	}

	if got.D.Cmp(priv.D) != 0 || got.N.Cmp(priv.N) != 0 {
		t.Error("parsed private key differs from the original")
	}
}

func TestParsePrivateKey_RejectsGarbage(t *testing.T) {
	if _, err := ParsePrivateKey([]byte("not DER at all")); err == nil {
		t.Error("ParsePrivateKey() accepted non-DER bytes")
	}
}
