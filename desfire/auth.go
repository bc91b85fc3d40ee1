package desfire

import "crypto/subtle"

// Authentication opcodes (§4.5).
const (
	opAuthLegacy   byte = 0x0A
	opAuthISO      byte = 0x1A // reserved, not implemented (§9 Open Question 3)
	opAuthAES      byte = 0xAA
	opAuthEV2First byte = 0x71
	opAuthEV2Non   byte = 0x77
)

// AuthenticateLegacy runs the legacy DES/3DES handshake (opcode 0x0A,
// §4.5.1). The cipher is chosen by key length: 16 bytes selects 2TDEA,
// 24 bytes selects 3TDEA. No session keys are derived; only
// authenticated/key_no are set.
func (e *Engine) AuthenticateLegacy(sess *Session, keyNo byte, key []byte) error {
	sess.clearAuth()

	resp1, err := e.CallChecked(opAuthLegacy, []byte{keyNo})
	if err != nil {
		return failAuth(sess, "challenge", err)
	}
	if len(resp1) != 8 {
		return failAuth(sess, "challenge", &CryptoLengthError{Want: 8, Got: len(resp1)})
	}

	iv0 := make([]byte, 8)
	rndB, err := tdesCBCDecrypt(key, iv0, resp1)
	if err != nil {
		return failAuth(sess, "challenge", err)
	}

	rndA, err := randomBytes(8)
	if err != nil {
		return failAuth(sess, "response", err)
	}

	challenge := append(append([]byte{}, rndA...), rotateLeft1(rndB)...)
	encChallenge, err := tdesCBCEncrypt(key, resp1, challenge) // IV = received ciphertext block
	if err != nil {
		return failAuth(sess, "response", err)
	}

	resp2, err := e.CallChecked(opAdditionalFrame, encChallenge)
	if err != nil {
		return failAuth(sess, "verify", err)
	}
	if len(resp2) != 8 {
		return failAuth(sess, "verify", &CryptoLengthError{Want: 8, Got: len(resp2)})
	}

	ivVerify := encChallenge[len(encChallenge)-8:]
	rndAPrime, err := tdesCBCDecrypt(key, ivVerify, resp2)
	if err != nil {
		return failAuth(sess, "verify", err)
	}
	if !constantTimeEqual(rndAPrime, rotateLeft1(rndA)) {
		return failAuth(sess, "verify", &AuthError{Step: "verify"})
	}

	kind := AuthLegacy3DES
	if len(key) == 16 {
		kind = AuthLegacyDES
	}
	sess.Authenticated = true
	sess.KeyNo = keyNo
	sess.Kind = kind
	return nil
}

// AuthenticateAES runs the non-EV2 AES handshake (opcode 0xAA, §4.5.2).
// Session keys are derived by byte splicing, not CMAC.
func (e *Engine) AuthenticateAES(sess *Session, keyNo byte, key []byte) error {
	sess.clearAuth()

	resp1, err := e.CallChecked(opAuthAES, []byte{keyNo})
	if err != nil {
		return failAuth(sess, "challenge", err)
	}
	if len(resp1) != 16 {
		return failAuth(sess, "challenge", &CryptoLengthError{Want: 16, Got: len(resp1)})
	}

	iv0 := make([]byte, 16)
	rndB, err := aesCBCDecrypt(key, iv0, resp1)
	if err != nil {
		return failAuth(sess, "challenge", err)
	}

	rndA, err := randomBytes(16)
	if err != nil {
		return failAuth(sess, "response", err)
	}

	challenge := append(append([]byte{}, rndA...), rotateLeft1(rndB)...)
	encChallenge, err := aesCBCEncrypt(key, iv0, challenge)
	if err != nil {
		return failAuth(sess, "response", err)
	}

	resp2, err := e.CallChecked(opAdditionalFrame, encChallenge)
	if err != nil {
		return failAuth(sess, "verify", err)
	}
	if len(resp2) != 16 {
		return failAuth(sess, "verify", &CryptoLengthError{Want: 16, Got: len(resp2)})
	}

	rndAPrime, err := aesCBCDecrypt(key, iv0, resp2)
	if err != nil {
		return failAuth(sess, "verify", err)
	}
	if !constantTimeEqual(rndAPrime, rotateLeft1(rndA)) {
		return failAuth(sess, "verify", &AuthError{Step: "verify"})
	}

	encKey, macKey := deriveAESSessionKeys(rndA, rndB)

	sess.Authenticated = true
	sess.KeyNo = keyNo
	sess.Kind = AuthAES
	sess.sessionEncKey = encKey
	sess.sessionMacKey = macKey
	sess.commandCounter = 0
	sess.transactionID = nil
	return nil
}

// deriveAESSessionKeys implements the non-EV2 AES byte-splicing session-key
// derivation of §4.5.2 (not CMAC-based).
func deriveAESSessionKeys(rndA, rndB []byte) (enc, mac []byte) {
	enc = make([]byte, 0, 16)
	enc = append(enc, rndA[0:4]...)
	enc = append(enc, rndB[0:4]...)
	enc = append(enc, rndA[12:16]...)
	enc = append(enc, rndB[12:16]...)

	mac = make([]byte, 0, 16)
	mac = append(mac, rndA[4:8]...)
	mac = append(mac, rndB[4:8]...)
	mac = append(mac, rndA[8:12]...)
	mac = append(mac, rndB[8:12]...)
	return enc, mac
}

// ev2SV builds the SV1 (header A5 5A 00 01 00 80) or SV2 (header
// 5A A5 00 01 00 80) CMAC input exactly as defined in §4.5.3.
func ev2SV(header [6]byte, rndA, rndB []byte) []byte {
	sv := make([]byte, 0, 16)
	sv = append(sv, header[:]...)
	sv = append(sv, rndA[0:2]...)
	sv = append(sv, rndB[0:2]...)
	sv = append(sv, rndA[13:16]...)
	sv = append(sv, rndB[13:16]...)
	return sv
}

var sv1Header = [6]byte{0xA5, 0x5A, 0x00, 0x01, 0x00, 0x80}
var sv2Header = [6]byte{0x5A, 0xA5, 0x00, 0x01, 0x00, 0x80}

func deriveEV2SessionKeys(authKey, rndA, rndB []byte) (enc, mac []byte, err error) {
	sv1 := ev2SV(sv1Header, rndA, rndB)
	sv2 := ev2SV(sv2Header, rndA, rndB)
	enc, err = AESCMAC(authKey, sv1)
	if err != nil {
		return nil, nil, err
	}
	mac, err = AESCMAC(authKey, sv2)
	if err != nil {
		return nil, nil, err
	}
	return enc, mac, nil
}

// AuthenticateEV2First runs the EV2First handshake (opcode 0x71, §4.5.3).
// On success it stores a fresh transaction ID and resets the command
// counter to 0.
func (e *Engine) AuthenticateEV2First(sess *Session, keyNo byte, key []byte) error {
	return e.authenticateEV2(sess, opAuthEV2First, AuthEV2First, keyNo, key)
}

// AuthenticateEV2NonFirst runs the EV2NonFirst handshake (opcode 0x77,
// §4.5.4). The session must already carry a transaction ID from a prior
// EV2First in the same application.
func (e *Engine) AuthenticateEV2NonFirst(sess *Session, keyNo byte, key []byte) error {
	if len(sess.transactionID) != 4 {
		return &PreconditionError{Reason: "EV2NonFirst requires an existing transaction_id from EV2First"}
	}
	existingTI := append([]byte{}, sess.transactionID...)
	err := e.authenticateEV2(sess, opAuthEV2Non, AuthEV2NonFirst, keyNo, key)
	if err != nil {
		return err
	}
	sess.transactionID = existingTI
	return nil
}

func (e *Engine) authenticateEV2(sess *Session, opcode byte, kind AuthKind, keyNo byte, key []byte) error {
	sess.clearAuth()

	resp1, err := e.CallChecked(opcode, []byte{keyNo, 0x00, 0x00})
	if err != nil {
		return failAuth(sess, "challenge", err)
	}
	if len(resp1) != 16 {
		return failAuth(sess, "challenge", &CryptoLengthError{Want: 16, Got: len(resp1)})
	}

	iv0 := make([]byte, 16)
	rndB, err := aesCBCDecrypt(key, iv0, resp1)
	if err != nil {
		return failAuth(sess, "challenge", err)
	}

	rndA, err := randomBytes(16)
	if err != nil {
		return failAuth(sess, "response", err)
	}

	challenge := append(append([]byte{}, rndA...), rotateLeft1(rndB)...)
	encChallenge, err := aesCBCEncrypt(key, iv0, challenge)
	if err != nil {
		return failAuth(sess, "response", err)
	}

	resp2, err := e.CallChecked(opAdditionalFrame, encChallenge)
	if err != nil {
		return failAuth(sess, "verify", err)
	}

	var ti []byte
	var encRndAPrime []byte
	switch kind {
	case AuthEV2First:
		if len(resp2) < 20 {
			return failAuth(sess, "verify", &CryptoLengthError{Want: 20, Got: len(resp2)})
		}
		ti = resp2[:4]
		encRndAPrime = resp2[4:20]
	default: // EV2NonFirst: no TI prefix
		if len(resp2) < 16 {
			return failAuth(sess, "verify", &CryptoLengthError{Want: 16, Got: len(resp2)})
		}
		encRndAPrime = resp2[:16]
	}

	rndAPrime, err := aesCBCDecrypt(key, iv0, encRndAPrime)
	if err != nil {
		return failAuth(sess, "verify", err)
	}
	if !constantTimeEqual(rndAPrime, rotateLeft1(rndA)) {
		return failAuth(sess, "verify", &AuthError{Step: "verify"})
	}

	encKey, macKey, err := deriveEV2SessionKeys(key, rndA, rndB)
	if err != nil {
		return failAuth(sess, "derive", err)
	}

	sess.Authenticated = true
	sess.KeyNo = keyNo
	sess.Kind = kind
	sess.sessionEncKey = encKey
	sess.sessionMacKey = macKey
	sess.commandCounter = 0
	if kind == AuthEV2First {
		sess.transactionID = append([]byte{}, ti...)
	}
	return nil
}

// failAuth clears all session material before returning the wrapped
// error, per spec.md §4.5.5 ("All non-success, non-continuation status
// words abort the handshake and clear session state") and §9
// "Cryptographic hygiene".
func failAuth(sess *Session, step string, cause error) error {
	sess.clearAuth()
	if ae, ok := cause.(*AuthError); ok && ae.Step == "" {
		ae.Step = step
		return ae
	}
	if _, ok := cause.(*CryptoLengthError); ok {
		return cause
	}
	return &AuthError{Step: step, Cause: cause}
}

// constantTimeEqual compares two equal-length byte slices in constant
// time, as spec.md §4.5.5 requires for RndA' verification.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
