package desfire

import "fmt"

// Status words used by the APDU codec and the error taxonomy below.
const (
	swISOSuccess     = 0x9000
	swISOSuccessAlt  = 0x9100
	swContinuation   = 0x91AF
	swLenErr7E       = 0x917E
	swLenErrA1       = 0x91A1
	swAuthError      = 0x91AE
	swPermDenied9D   = 0x919D
	swSecurityISO    = 0x6982
	swNotFoundF0     = 0x91F0
	swFileNotFoundISO = 0x6A82
	swDuplicate      = 0x91DE
	swOutOfMemory    = 0x919C
	swIntegrity9D    = 0x919D
	swIntegrityC1    = 0x91C1
	swIntegrityFE    = 0x91FE
	swBoundary       = 0x91BE
	swAborted        = 0x91CA
	swIllegal9E      = 0x919E
	swIllegalISO     = 0x6D00
	swNoChanges      = 0x9140
)

// Kind classifies a failure the way spec.md §7 names them.
type Kind int

const (
	KindTransport Kind = iota
	KindProtocol
	KindLengthMismatch
	KindAuthFailed
	KindPermissionDenied
	KindNotFound
	KindDuplicate
	KindOutOfMemory
	KindIntegrityError
	KindBoundary
	KindAborted
	KindIllegalCommand
	KindPreconditionNotAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindLengthMismatch:
		return "length_mismatch"
	case KindAuthFailed:
		return "auth_failed"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindOutOfMemory:
		return "out_of_memory"
	case KindIntegrityError:
		return "integrity_error"
	case KindBoundary:
		return "boundary"
	case KindAborted:
		return "aborted"
	case KindIllegalCommand:
		return "illegal_command"
	case KindPreconditionNotAuthenticated:
		return "precondition_not_authenticated"
	default:
		return "unknown"
	}
}

// StatusError carries a command's opcode and the status word the card
// returned, classified into a Kind.
type StatusError struct {
	Cmd byte
	SW  uint16
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("command 0x%02X failed: SW=%04X (%s)", e.Cmd, e.SW, classifySW(e.SW))
}

// Kind classifies the status word per spec.md §7.
func (e *StatusError) Kind() Kind {
	switch e.SW {
	case swContinuation:
		return KindProtocol // should never surface as an error kind in practice
	case swLenErr7E, swLenErrA1:
		return KindLengthMismatch
	case swAuthError:
		return KindAuthFailed
	case swPermDenied9D:
		return KindPermissionDenied
	case swNotFoundF0, swFileNotFoundISO:
		return KindNotFound
	case swDuplicate:
		return KindDuplicate
	case swOutOfMemory:
		return KindOutOfMemory
	case swIntegrityC1, swIntegrityFE:
		return KindIntegrityError
	case swBoundary:
		return KindBoundary
	case swAborted:
		return KindAborted
	case swIllegal9E, swIllegalISO:
		return KindIllegalCommand
	default:
		return KindProtocol
	}
}

func classifySW(sw uint16) string {
	switch sw {
	case swISOSuccess, swISOSuccessAlt:
		return "success"
	case swContinuation:
		return "additional frame expected"
	case swLenErr7E, swLenErrA1:
		return "length error"
	case swAuthError:
		return "authentication error"
	case swPermDenied9D:
		return "permission denied / security not satisfied"
	case swNotFoundF0, swFileNotFoundISO:
		return "not found"
	case swDuplicate:
		return "duplicate"
	case swOutOfMemory:
		return "out of memory"
	case swIntegrityC1, swIntegrityFE:
		return "integrity error"
	case swBoundary:
		return "boundary error"
	case swAborted:
		return "command aborted"
	case swIllegal9E, swIllegalISO:
		return "illegal command"
	case swNoChanges:
		return "no changes"
	default:
		return "unknown status"
	}
}

// IsSuccess reports whether sw indicates a successful, non-continuation
// response (§4.1).
func IsSuccess(sw uint16) bool {
	return sw == swISOSuccess || sw == swISOSuccessAlt
}

// IsContinuation reports whether sw asks the caller to fetch another frame.
func IsContinuation(sw uint16) bool {
	return sw == swContinuation
}

// IsLengthError reports whether sw is one of the two length-error codes
// that drive Le-policy switching in the transmit engine.
func IsLengthError(sw uint16) bool {
	return sw == swLenErr7E || sw == swLenErrA1
}

// TransportError wraps a reader I/O failure or an empty/short response.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport: %v", e.Cause)
	}
	return "transport: empty response"
}

func (e *TransportError) Unwrap() error { return e.Cause }

func (e *TransportError) Kind() Kind { return KindTransport }

// ProtocolError covers malformed responses: too short, unexpected length,
// unknown status word shapes the codec can't classify.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Reason }

func (e *ProtocolError) Kind() Kind { return KindProtocol }

// AuthError represents a failure inside an authentication handshake. Step
// names one of "challenge", "response", "verify", "derive".
type AuthError struct {
	Step  string
	SW    uint16
	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth %s failed: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("auth %s failed (SW=%04X)", e.Step, e.SW)
}

func (e *AuthError) Unwrap() error { return e.Cause }

func (e *AuthError) Kind() Kind { return KindAuthFailed }

// CryptoLengthError is returned when a decrypted challenge/response is the
// wrong length — fatal per spec.md §4.5.5's tie-break policy.
type CryptoLengthError struct {
	Want, Got int
}

func (e *CryptoLengthError) Error() string {
	return fmt.Sprintf("crypto length mismatch: want %d bytes, got %d", e.Want, e.Got)
}

func (e *CryptoLengthError) Kind() Kind { return KindAuthFailed }

// PreconditionError is returned when a caller invokes a session-dependent
// operation without an authenticated session of the required kind.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return "precondition: " + e.Reason }

func (e *PreconditionError) Kind() Kind { return KindPreconditionNotAuthenticated }

// Kinded is implemented by every error type this package returns.
type Kinded interface {
	error
	Kind() Kind
}

// ClassifyError returns the Kind of any error this package produced, and
// ok=false for anything else (including a bare transport error that never
// got wrapped).
func ClassifyError(err error) (Kind, bool) {
	if k, ok := err.(Kinded); ok {
		return k.Kind(), true
	}
	return 0, false
}
