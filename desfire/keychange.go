package desfire

// Key-change and key-set-rollover opcodes (§4.6).
const (
	opChangeKeyEV2     byte = 0xC6
	opChangeKeyLegacy  byte = 0xC4
	opInitializeKeySet byte = 0x56
	opRollKeySet       byte = 0x55
	opFinalizeKeySet   byte = 0x57
	opGetKeyVersion    byte = 0x64
	opChangeKeySettings byte = 0x54
)

// ChangeKeyEV2 performs the session-encrypted key change (opcode 0xC6,
// §4.6). It requires an EV2First/EV2NonFirst session (§9 Open Question 2):
// the byte-spliced keys from plain AuthAES are not CMAC-derived and are
// rejected here rather than silently used.
func (e *Engine) ChangeKeyEV2(sess *Session, keyNo byte, newKey []byte, newVersion byte) error {
	if err := sess.requireEV2("ChangeKeyEV2"); err != nil {
		return err
	}
	if len(newKey) != 16 {
		return &CryptoLengthError{Want: 16, Got: len(newKey)}
	}

	plain := make([]byte, 0, 21)
	plain = append(plain, newKey...)
	plain = append(plain, newVersion)

	crcInput := make([]byte, 0, 2+len(plain))
	crcInput = append(crcInput, opChangeKeyEV2, keyNo)
	crcInput = append(crcInput, plain...)
	crc := CRC32LE(crcInput)
	plain = append(plain, crc[:]...)

	padded := plain
	if len(plain)%16 != 0 {
		padded = padISO97971M2(plain)
	}

	iv0 := make([]byte, 16)
	ciphertext, err := aesCBCEncrypt(sess.sessionEncKey, iv0, padded)
	if err != nil {
		return err
	}

	req := make([]byte, 0, 1+len(ciphertext))
	req = append(req, keyNo)
	req = append(req, ciphertext...)
	_, err = e.CallChecked(opChangeKeyEV2, req)
	return err
}

// ChangeKeyLegacy sends the unencrypted legacy key change (opcode 0xC4,
// §4.6). Intended only for moving off factory-default keys; the card
// receives the new key in the clear.
func (e *Engine) ChangeKeyLegacy(sess *Session, keyNo byte, newKey []byte, newVersion byte) error {
	if err := sess.requireAuth("ChangeKeyLegacy"); err != nil {
		return err
	}
	req := make([]byte, 0, 2+len(newKey))
	req = append(req, keyNo)
	req = append(req, newKey...)
	req = append(req, newVersion)
	_, err := e.CallChecked(opChangeKeyLegacy, req)
	return err
}

// InitializeKeySet begins a key-set rollover (opcode 0x56, §4.6).
func (e *Engine) InitializeKeySet(sess *Session, keySetNo byte, keyType KeyType) error {
	if err := sess.requireAuth("InitializeKeySet"); err != nil {
		return err
	}
	_, err := e.CallChecked(opInitializeKeySet, []byte{keySetNo, byte(keyType)})
	return err
}

// RollKeySet activates a previously initialized key set (opcode 0x55, §4.6).
func (e *Engine) RollKeySet(sess *Session, keySetNo byte) error {
	if err := sess.requireAuth("RollKeySet"); err != nil {
		return err
	}
	_, err := e.CallChecked(opRollKeySet, []byte{keySetNo})
	return err
}

// FinalizeKeySet completes a key-set rollover (opcode 0x57, §4.6).
func (e *Engine) FinalizeKeySet(sess *Session) error {
	if err := sess.requireAuth("FinalizeKeySet"); err != nil {
		return err
	}
	_, err := e.CallChecked(opFinalizeKeySet, nil)
	return err
}

// GetKeyVersion returns the version byte previously set on keyNo by
// ChangeKey/ChangeKeyEV2 (opcode 0x64, recovered command, §4.6 EXPANSION).
func (e *Engine) GetKeyVersion(sess *Session, keyNo byte) (byte, error) {
	if err := sess.requireAuth("GetKeyVersion"); err != nil {
		return 0, err
	}
	resp, err := e.CallChecked(opGetKeyVersion, []byte{keyNo})
	if err != nil {
		return 0, err
	}
	if len(resp) != 1 {
		return 0, &CryptoLengthError{Want: 1, Got: len(resp)}
	}
	return resp[0], nil
}

// ChangeKeySettings updates the current application's key settings byte
// (opcode 0x54, recovered command, §4.6 EXPANSION).
func (e *Engine) ChangeKeySettings(sess *Session, newSettings byte) error {
	if err := sess.requireAuth("ChangeKeySettings"); err != nil {
		return err
	}
	_, err := e.CallChecked(opChangeKeySettings, []byte{newSettings})
	return err
}
