package desfire

// Application-level opcodes (§4.7).
const (
	opGetVersion       byte = 0x60
	opGetApplicationIDs byte = 0x6A
	opCreateApplication byte = 0xCA
	opDeleteApplication byte = 0xDA
	opSelectApplication byte = 0x5A
	opGetKeySettings    byte = 0x45
	opFormatPICC        byte = 0xFC
	opGetFreeMemory     byte = 0x6E
)

// VersionInfo is the three 7-byte blocks returned by GetVersion: hardware,
// software, and UID/production blocks (§4.7).
type VersionInfo struct {
	Hardware [7]byte
	Software [7]byte
	UID      [7]byte
}

// GetVersion issues opcode 0x60 and collects the three chained 7-byte
// blocks (§4.7). Engine.Call already reassembles the 91 AF continuations;
// this just slices the result.
func (e *Engine) GetVersion() (VersionInfo, error) {
	out, err := e.CallChecked(opGetVersion, nil)
	if err != nil {
		return VersionInfo{}, err
	}
	if len(out) != 21 {
		return VersionInfo{}, &CryptoLengthError{Want: 21, Got: len(out)}
	}
	var v VersionInfo
	copy(v.Hardware[:], out[0:7])
	copy(v.Software[:], out[7:14])
	copy(v.UID[:], out[14:21])
	return v, nil
}

// GetApplicationIDs parses the response as a sequence of 3-byte
// little-endian AIDs (opcode 0x6A, §4.7).
func (e *Engine) GetApplicationIDs() ([]AID, error) {
	out, err := e.CallChecked(opGetApplicationIDs, nil)
	if err != nil {
		return nil, err
	}
	if len(out)%3 != 0 {
		return nil, &ProtocolError{Reason: "GetApplicationIDs response not a multiple of 3 bytes"}
	}
	ids := make([]AID, 0, len(out)/3)
	for i := 0; i < len(out); i += 3 {
		ids = append(ids, AIDFromBytes(out[i:i+3]))
	}
	return ids, nil
}

// CreateApplication issues opcode 0xCA: AID(3 LE) || keySettings(1) ||
// (numKeys | keyType) (§4.7), with keyType in the upper 2 bits as
// GetKeySettings decodes it (0x80 AES, 0x40 TKTDES, 0x00 DES/TDES).
func (e *Engine) CreateApplication(aid AID, keySettings byte, numKeys byte, keyType KeyType) error {
	b := aid.Bytes()
	keyBits := byte(0x00)
	switch keyType {
	case KeyTypeAES:
		keyBits = 0x80
	case KeyTypeTKTDES:
		keyBits = 0x40
	}
	req := []byte{b[0], b[1], b[2], keySettings, numKeys | keyBits}
	_, err := e.CallChecked(opCreateApplication, req)
	return err
}

// DeleteApplication issues opcode 0xDA (recovered command, §4.7 EXPANSION).
func (e *Engine) DeleteApplication(aid AID) error {
	b := aid.Bytes()
	_, err := e.CallChecked(opDeleteApplication, b[:])
	return err
}

// SelectApplication issues opcode 0x5A and, per §3 invariants, unconditionally
// clears the session's authentication state before updating current_app —
// even on failure, since any SelectApplication attempt invalidates trust in
// the prior session.
func (e *Engine) SelectApplication(sess *Session, aid AID) error {
	sess.clearAuth()
	b := aid.Bytes()
	_, err := e.CallChecked(opSelectApplication, b[:])
	if err != nil {
		return err
	}
	sess.currentApp = aid
	return nil
}

// KeySettingsInfo decodes the GetKeySettings response: the settings byte
// plus the packed maxKeys/keyType byte (§4.7).
type KeySettingsInfo struct {
	Settings byte
	MaxKeys  byte
	KeyType  KeyType
}

// GetKeySettings issues opcode 0x45 and decodes maxKeys = lower 6 bits,
// keyType = upper 2 bits (0x80 denotes AES in the legacy encoding) (§4.7).
func (e *Engine) GetKeySettings() (KeySettingsInfo, error) {
	out, err := e.CallChecked(opGetKeySettings, nil)
	if err != nil {
		return KeySettingsInfo{}, err
	}
	if len(out) != 2 {
		return KeySettingsInfo{}, &CryptoLengthError{Want: 2, Got: len(out)}
	}
	packed := out[1]
	return KeySettingsInfo{
		Settings: out[0],
		MaxKeys:  packed & 0x3F,
		KeyType:  decodeKeyTypeNibble(packed >> 6),
	}, nil
}

func decodeKeyTypeNibble(upper byte) KeyType {
	switch upper {
	case 0x02:
		return KeyTypeAES
	case 0x01:
		return KeyTypeTKTDES
	default:
		return KeyTypeDES
	}
}

// FormatPICC erases all applications (opcode 0xFC, §4.7). Requires
// PICC-level authentication.
func (e *Engine) FormatPICC(sess *Session) error {
	if err := sess.requireAuth("FormatPICC"); err != nil {
		return err
	}
	if sess.currentApp != PICC {
		return &PreconditionError{Reason: "FormatPICC requires PICC-level selection"}
	}
	_, err := e.CallChecked(opFormatPICC, nil)
	return err
}

// GetFreeMemory returns the 3-byte little-endian free-memory count
// (opcode 0x6E, §4.7).
func (e *Engine) GetFreeMemory() (uint32, error) {
	out, err := e.CallChecked(opGetFreeMemory, nil)
	if err != nil {
		return 0, err
	}
	if len(out) != 3 {
		return 0, &CryptoLengthError{Want: 3, Got: len(out)}
	}
	return uint32(out[0]) | uint32(out[1])<<8 | uint32(out[2])<<16, nil
}
