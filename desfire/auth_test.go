package desfire

import "testing"

// cardSimLegacy plays the card side of the legacy DES/3DES handshake for
// testing: it decrypts whatever the engine sends with the same key and
// replies with the correctly-derived rol1(RndA) ciphertext, the way the
// teacher's emulator package stands in for a real card.
type cardSimLegacy struct {
	t       *testing.T
	key     []byte
	calls   int
	rndB    []byte
	encRndB []byte
}

func newCardSimLegacy(t *testing.T, key, rndB []byte) *cardSimLegacy {
	t.Helper()
	encRndB, err := tdesCBCEncrypt(key, make([]byte, 8), rndB)
	if err != nil {
		t.Fatalf("seed encrypt: %v", err)
	}
	return &cardSimLegacy{t: t, key: key, rndB: rndB, encRndB: encRndB}
}

func (c *cardSimLegacy) Transmit(apdu []byte) ([]byte, error) {
	c.calls++
	switch c.calls {
	case 1:
		if !bytesEqual(apdu, []byte{0x90, 0x0A, 0x00, 0x00, 0x01, 0x00}) {
			c.t.Fatalf("unexpected first APDU % X", apdu)
		}
		return append(append([]byte{}, c.encRndB...), 0x91, 0x00), nil
	case 2:
		// apdu = 90 AF 00 00 10 <encChallenge 16>
		encChallenge := apdu[5 : 5+16]
		plain, err := tdesCBCDecrypt(c.key, c.encRndB, encChallenge)
		if err != nil {
			c.t.Fatalf("card decrypt: %v", err)
		}
		rndA := plain[0:8]
		resp, err := tdesCBCEncrypt(c.key, encChallenge[8:16], rotateLeft1(rndA))
		if err != nil {
			c.t.Fatalf("card encrypt response: %v", err)
		}
		return append(resp, 0x91, 0x00), nil
	default:
		c.t.Fatalf("unexpected third transmit call")
		return nil, nil
	}
}

func TestAuthenticateLegacyDESFactoryKeyScenario(t *testing.T) {
	key := DefaultKey()
	card := newCardSimLegacy(t, key, mustHex("1122334455667788"))
	e := NewEngine(card)
	sess := &Session{}

	if err := e.AuthenticateLegacy(sess, 0, key); err != nil {
		t.Fatalf("AuthenticateLegacy: %v", err)
	}
	if !sess.Authenticated || sess.KeyNo != 0 || sess.Kind != AuthLegacyDES {
		t.Fatalf("unexpected post-auth session: %+v", sess)
	}
	if sess.SessionEncKey() != nil || sess.SessionMacKey() != nil {
		t.Fatalf("legacy auth must not derive session keys")
	}
}

func TestAuthenticateLegacyWrongKeyFailsAndZeroizes(t *testing.T) {
	realKey := DefaultKey()
	wrongKey := mustHex("000102030405060708090a0b0c0d0e0f")
	card := newCardSimLegacy(t, realKey, mustHex("1122334455667788"))
	e := NewEngine(card)
	sess := &Session{}
	sess.Authenticated = true // pretend a prior session existed

	err := e.AuthenticateLegacy(sess, 0, wrongKey)
	if err == nil {
		t.Fatalf("expected authentication failure with wrong key")
	}
	if sess.Authenticated {
		t.Fatalf("failed auth must clear authenticated")
	}
	if kind, ok := ClassifyError(err); !ok || kind != KindAuthFailed {
		t.Fatalf("expected AuthFailed kind, got %v ok=%v", kind, ok)
	}
}

func TestDeriveAESSessionKeysByteSplicing(t *testing.T) {
	rndA := mustHex("A1A2A3A4A5A6A7A8A9AAABACADAEAFB0")
	rndB := mustHex("B1B2B3B4B5B6B7B8B9BABBBCBDBEBFC0")

	enc, mac := deriveAESSessionKeys(rndA, rndB)

	wantEnc := mustHex("A1A2A3A4B1B2B3B4ADAEAFB0BDBEBFC0")
	wantMac := mustHex("A5A6A7A8B5B6B7B8A9AAABACB9BABBBC")
	if !bytesEqual(enc, wantEnc) {
		t.Fatalf("session_enc_key: got % X want % X", enc, wantEnc)
	}
	if !bytesEqual(mac, wantMac) {
		t.Fatalf("session_mac_key: got % X want % X", mac, wantMac)
	}
}

func TestEV2SVInputLayout(t *testing.T) {
	rndA := mustHex("A1A2A3A4A5A6A7A8A9AAABACADAEAFB0")
	rndB := mustHex("B1B2B3B4B5B6B7B8B9BABBBCBDBEBFC0")

	sv1 := ev2SV(sv1Header, rndA, rndB)
	sv2 := ev2SV(sv2Header, rndA, rndB)

	expectedSV1 := append(append([]byte{}, sv1Header[:]...), rndA[0:2]...)
	expectedSV1 = append(expectedSV1, rndB[0:2]...)
	expectedSV1 = append(expectedSV1, rndA[13:16]...)
	expectedSV1 = append(expectedSV1, rndB[13:16]...)

	expectedSV2 := append(append([]byte{}, sv2Header[:]...), rndA[0:2]...)
	expectedSV2 = append(expectedSV2, rndB[0:2]...)
	expectedSV2 = append(expectedSV2, rndA[13:16]...)
	expectedSV2 = append(expectedSV2, rndB[13:16]...)

	if len(sv1) != 16 || len(sv2) != 16 {
		t.Fatalf("SV1/SV2 must be 16 bytes, got %d/%d", len(sv1), len(sv2))
	}
	if !bytesEqual(sv1, expectedSV1) {
		t.Fatalf("SV1: got % X want % X", sv1, expectedSV1)
	}
	if !bytesEqual(sv2, expectedSV2) {
		t.Fatalf("SV2: got % X want % X", sv2, expectedSV2)
	}
}

func TestEV2NonFirstRequiresExistingTransactionID(t *testing.T) {
	e := NewEngine(newFakeCard(t))
	sess := &Session{}
	err := e.AuthenticateEV2NonFirst(sess, 0, DefaultKey())
	if err == nil {
		t.Fatalf("expected precondition error without a prior transaction_id")
	}
	if kind, ok := ClassifyError(err); !ok || kind != KindPreconditionNotAuthenticated {
		t.Fatalf("expected PreconditionNotAuthenticated, got %v ok=%v", kind, ok)
	}
}

func TestSelectAuthSelectClearsAuthentication(t *testing.T) {
	fc := newFakeCard(t)
	fc.expect("9100") // SelectApplication(A)
	e := NewEngine(fc)
	sess := &Session{}

	if err := e.SelectApplication(sess, AID(0x000001)); err != nil {
		t.Fatalf("SelectApplication(A): %v", err)
	}
	sess.Authenticated = true // simulate a completed Auth(A, K0)

	fc.expect("9100") // SelectApplication(B)
	if err := e.SelectApplication(sess, AID(0x000002)); err != nil {
		t.Fatalf("SelectApplication(B): %v", err)
	}
	if sess.Authenticated {
		t.Fatalf("SelectApplication must clear authenticated state")
	}
}
