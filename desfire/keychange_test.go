package desfire

import "testing"

func TestChangeKeyEV2RejectsNonEV2Session(t *testing.T) {
	fc := newFakeCard(t)
	e := NewEngine(fc)
	sess := &Session{Authenticated: true, Kind: AuthAES, sessionEncKey: make([]byte, 16)}

	err := e.ChangeKeyEV2(sess, 0, DefaultKey(), 1)
	if err == nil {
		t.Fatalf("expected ChangeKeyEV2 to reject a non-EV2 session")
	}
	if kind, ok := ClassifyError(err); !ok || kind != KindPreconditionNotAuthenticated {
		t.Fatalf("expected PreconditionNotAuthenticated, got %v ok=%v", kind, ok)
	}
}

func TestChangeKeyEV2PadsPlaintextTo32Bytes(t *testing.T) {
	fc := newFakeCard(t)
	fc.script = append(fc.script, fakeExchange{resp: mustHex("9100")})
	e := NewEngine(fc)
	sess := &Session{
		Authenticated: true,
		Kind:          AuthEV2First,
		sessionEncKey: make([]byte, 16),
	}

	if err := e.ChangeKeyEV2(sess, 3, DefaultKey(), 1); err != nil {
		t.Fatalf("ChangeKeyEV2: %v", err)
	}
	sent := fc.sent[0]
	// CLA INS P1 P2 Lc keyNo ciphertext(32) => Lc = 1+32 = 33
	if sent[4] != 33 {
		t.Fatalf("expected Lc=33 (keyNo + 32-byte ciphertext), got %d", sent[4])
	}
	if sent[5] != 3 {
		t.Fatalf("expected keyNo=3 in request, got %d", sent[5])
	}
}

func TestChangeKeyLegacyRequiresAuthenticatedSession(t *testing.T) {
	fc := newFakeCard(t)
	e := NewEngine(fc)
	sess := &Session{}
	if err := e.ChangeKeyLegacy(sess, 0, DefaultKey(), 1); err == nil {
		t.Fatalf("expected precondition failure without an authenticated session")
	}
}

func TestKeySetRolloverTripletRequiresAuth(t *testing.T) {
	fc := newFakeCard(t)
	e := NewEngine(fc)
	sess := &Session{}

	if err := e.InitializeKeySet(sess, 1, KeyTypeAES); err == nil {
		t.Fatalf("expected InitializeKeySet to require auth")
	}
	if err := e.RollKeySet(sess, 1); err == nil {
		t.Fatalf("expected RollKeySet to require auth")
	}
	if err := e.FinalizeKeySet(sess); err == nil {
		t.Fatalf("expected FinalizeKeySet to require auth")
	}
}

func TestGetKeyVersionDecodesSingleByte(t *testing.T) {
	fc := newFakeCard(t)
	fc.expect("019100")
	e := NewEngine(fc)
	sess := &Session{Authenticated: true}

	v, err := e.GetKeyVersion(sess, 0)
	if err != nil {
		t.Fatalf("GetKeyVersion: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}
}
