package desfire

// AID is a 24-bit DESFire application identifier. 0x000000 denotes the
// card-level (PICC) context.
type AID uint32

// PICC is the card-level application identifier.
const PICC AID = 0x000000

// Bytes serializes the AID little-endian, as the wire format requires.
func (a AID) Bytes() [3]byte {
	return [3]byte{byte(a), byte(a >> 8), byte(a >> 16)}
}

// AIDFromBytes parses a 3-byte little-endian AID.
func AIDFromBytes(b []byte) AID {
	return AID(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
}

// KeyType identifies the cipher family a key slot uses.
type KeyType byte

const (
	KeyTypeDES KeyType = iota
	KeyTypeTDES
	KeyTypeTKTDES
	KeyTypeAES
)

// KeySet is supplied by the caller's vault for the lifetime of one
// operation; the core never persists it beyond the current session.
type KeySet struct {
	AppID    AID
	KeyType  KeyType
	Keys     map[byte][]byte
	Versions map[byte]byte
}

// DefaultKey returns the 16-byte factory-default key (all zero).
func DefaultKey() []byte {
	return make([]byte, 16)
}

// AccessRights packs the four 4-bit key-slot fields defined in §3 of the
// data model: Read, Write, ReadWrite (combined), ChangeAccessRights.
// 0x0-0xD select a key slot, 0xE means free, 0xF means denied.
type AccessRights struct {
	Read                byte
	Write               byte
	ReadWrite           byte
	ChangeAccessRights byte
}

const (
	AccessFree   byte = 0x0E
	AccessDenied byte = 0x0F
)

// PackAccessRights encodes the four fields into the two-byte wire form:
// byte0 = [Read<<4 | Write], byte1 = [ReadWrite<<4 | ChangeAccessRights]
// (§3, §8).
func PackAccessRights(ar AccessRights) [2]byte {
	return [2]byte{
		(ar.Read << 4) | (ar.Write & 0x0F),
		(ar.ReadWrite << 4) | (ar.ChangeAccessRights & 0x0F),
	}
}

// UnpackAccessRights decodes the two-byte wire form into its four fields.
func UnpackAccessRights(b [2]byte) AccessRights {
	return AccessRights{
		Read:               (b[0] >> 4) & 0x0F,
		Write:              b[0] & 0x0F,
		ReadWrite:          (b[1] >> 4) & 0x0F,
		ChangeAccessRights: b[1] & 0x0F,
	}
}

// ValueFileParams are the parameters for CreateValueFile (§3, §4.7).
type ValueFileParams struct {
	LowerLimit    int32
	UpperLimit    int32
	InitialValue  int32
	LimitedCredit bool
}

// CommSetting is the communication mode bits of a file's FileOption byte.
type CommSetting byte

const (
	CommPlain CommSetting = 0x00
	CommMAC   CommSetting = 0x01
	CommFull  CommSetting = 0x03
)

// TransactionRecordType distinguishes credit/debit entries persisted
// alongside value-file operations.
type TransactionRecordType byte

const (
	TxCredit        TransactionRecordType = 1
	TxDebit         TransactionRecordType = 2
	TxLimitedCredit TransactionRecordType = 3
)

// TransactionRecord is the fixed 24-byte layout callers may persist
// alongside value-file operations (§3): type(1) amount(4) timestamp(8)
// balance_after(4) reserved(7).
type TransactionRecord struct {
	Type         TransactionRecordType
	Amount       int32
	Timestamp    uint64
	BalanceAfter int32
}

// EncodeTransactionRecord serializes a TransactionRecord to its 24-byte
// little-endian wire layout.
func EncodeTransactionRecord(r TransactionRecord) [24]byte {
	var out [24]byte
	out[0] = byte(r.Type)
	putI32LE(out[1:5], r.Amount)
	putU64LE(out[5:13], r.Timestamp)
	putI32LE(out[13:17], r.BalanceAfter)
	return out
}

// DecodeTransactionRecord parses a 24-byte transaction record.
func DecodeTransactionRecord(b []byte) (TransactionRecord, error) {
	if len(b) != 24 {
		return TransactionRecord{}, &ProtocolError{Reason: "transaction record must be 24 bytes"}
	}
	return TransactionRecord{
		Type:         TransactionRecordType(b[0]),
		Amount:       getI32LE(b[1:5]),
		Timestamp:    getU64LE(b[5:13]),
		BalanceAfter: getI32LE(b[13:17]),
	}, nil
}

func putI32LE(dst []byte, v int32) {
	u := uint32(v)
	dst[0] = byte(u)
	dst[1] = byte(u >> 8)
	dst[2] = byte(u >> 16)
	dst[3] = byte(u >> 24)
}

func getI32LE(b []byte) int32 {
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func putU64LE(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func getU64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
