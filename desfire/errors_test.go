package desfire

import "testing"

func TestStatusErrorKindClassification(t *testing.T) {
	cases := []struct {
		sw   uint16
		want Kind
	}{
		{0x91AE, KindAuthFailed},
		{0x919D, KindPermissionDenied},
		{0x91F0, KindNotFound},
		{0x6A82, KindNotFound},
		{0x91DE, KindDuplicate},
		{0x919C, KindOutOfMemory},
		{0x91C1, KindIntegrityError},
		{0x91FE, KindIntegrityError},
		{0x91BE, KindBoundary},
		{0x91CA, KindAborted},
		{0x919E, KindIllegalCommand},
		{0x6D00, KindIllegalCommand},
		{0x1234, KindProtocol},
	}
	for _, c := range cases {
		err := &StatusError{Cmd: 0x60, SW: c.sw}
		if got := err.Kind(); got != c.want {
			t.Fatalf("SW %04X: got kind %v want %v", c.sw, got, c.want)
		}
	}
}

func TestClassifyErrorUnwrapsKinded(t *testing.T) {
	err := &AuthError{Step: "verify", SW: 0x91AE}
	kind, ok := ClassifyError(err)
	if !ok || kind != KindAuthFailed {
		t.Fatalf("ClassifyError(AuthError): got (%v, %v) want (AuthFailed, true)", kind, ok)
	}

	if _, ok := ClassifyError(nil); ok {
		t.Fatalf("ClassifyError(nil) should report ok=false")
	}
}

func TestPreconditionErrorIsPreconditionNotAuthenticated(t *testing.T) {
	err := &PreconditionError{Reason: "x requires an authenticated session"}
	if err.Kind() != KindPreconditionNotAuthenticated {
		t.Fatalf("expected KindPreconditionNotAuthenticated, got %v", err.Kind())
	}
}
