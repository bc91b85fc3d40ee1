package desfire

// File and value-file opcodes (§4.7).
const (
	opCreateStdDataFile    byte = 0xCD
	opCreateBackupDataFile byte = 0xCB
	opCreateValueFile      byte = 0xCC
	opDeleteFile           byte = 0xDF
	opGetFileIDs           byte = 0x6F
	opReadData             byte = 0xBD
	opWriteData            byte = 0x3D
	opGetValue             byte = 0x6C
	opCredit               byte = 0x0C
	opDebit                byte = 0xDC
	opLimitedCredit        byte = 0x1C
	opCommitTransaction    byte = 0xC7
	opAbortTransaction     byte = 0xA7
)

func put24LE(v int) [3]byte {
	return [3]byte{byte(v), byte(v >> 8), byte(v >> 16)}
}

func get24LE(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

func appendI32LE(dst []byte, v int32) []byte {
	u := uint32(v)
	return append(dst, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
}

// CreateStdDataFile issues opcode 0xCD: fileNo || commSettings || AR(2) ||
// fileSize(3 LE) (§4.7).
func (e *Engine) CreateStdDataFile(fileNo byte, comm CommSetting, ar AccessRights, fileSize int) error {
	return e.createDataFile(opCreateStdDataFile, fileNo, comm, ar, fileSize)
}

// CreateBackupDataFile issues opcode 0xCB with the same layout as
// CreateStdDataFile (§4.7).
func (e *Engine) CreateBackupDataFile(fileNo byte, comm CommSetting, ar AccessRights, fileSize int) error {
	return e.createDataFile(opCreateBackupDataFile, fileNo, comm, ar, fileSize)
}

func (e *Engine) createDataFile(ins byte, fileNo byte, comm CommSetting, ar AccessRights, fileSize int) error {
	packed := PackAccessRights(ar)
	size := put24LE(fileSize)
	req := []byte{fileNo, byte(comm), packed[0], packed[1], size[0], size[1], size[2]}
	_, err := e.CallChecked(ins, req)
	return err
}

// CreateValueFile issues opcode 0xCC: fileNo || commSettings || AR(2) ||
// lower(4 LE) || upper(4 LE) || value(4 LE) || limitedCredit(1) (§4.7).
func (e *Engine) CreateValueFile(fileNo byte, comm CommSetting, ar AccessRights, params ValueFileParams) error {
	packed := PackAccessRights(ar)
	req := make([]byte, 0, 16)
	req = append(req, fileNo, byte(comm), packed[0], packed[1])
	req = appendI32LE(req, params.LowerLimit)
	req = appendI32LE(req, params.UpperLimit)
	req = appendI32LE(req, params.InitialValue)
	lc := byte(0x00)
	if params.LimitedCredit {
		lc = 0x01
	}
	req = append(req, lc)
	_, err := e.CallChecked(opCreateValueFile, req)
	return err
}

// DeleteFile issues opcode 0xDF (recovered command, §4.7 EXPANSION).
func (e *Engine) DeleteFile(fileNo byte) error {
	_, err := e.CallChecked(opDeleteFile, []byte{fileNo})
	return err
}

// GetFileIDs issues opcode 0x6F and returns the raw list of file numbers
// (recovered command, §4.7 EXPANSION).
func (e *Engine) GetFileIDs() ([]byte, error) {
	return e.CallChecked(opGetFileIDs, nil)
}

// ReadData issues opcode 0xBD: fileNo || offset(3 LE) || length(3 LE),
// transparently reassembling continuation frames via Engine.Call (§4.7).
func (e *Engine) ReadData(fileNo byte, offset, length int) ([]byte, error) {
	off := put24LE(offset)
	ln := put24LE(length)
	req := []byte{fileNo, off[0], off[1], off[2], ln[0], ln[1], ln[2]}
	return e.CallChecked(opReadData, req)
}

// WriteData issues opcode 0x3D: fileNo || offset(3 LE) || length(3 LE) ||
// chunk, chunked via Engine.WriteChunked with the engine's ChunkSize
// (§4.7, §4.4, §8 scenario 6).
func (e *Engine) WriteData(fileNo byte, offset int, data []byte) error {
	off := put24LE(offset)
	ln := put24LE(len(data))
	header := []byte{fileNo, off[0], off[1], off[2], ln[0], ln[1], ln[2]}
	return e.WriteChunked(opWriteData, header, data)
}

// GetValue decodes the 4-byte signed little-endian balance of a value
// file (opcode 0x6C, §4.7).
func (e *Engine) GetValue(fileNo byte) (int32, error) {
	out, err := e.CallChecked(opGetValue, []byte{fileNo})
	if err != nil {
		return 0, err
	}
	if len(out) != 4 {
		return 0, &CryptoLengthError{Want: 4, Got: len(out)}
	}
	return getI32LE(out[:4]), nil
}

// Credit issues opcode 0x0C: fileNo || amount(4 LE). Requires a subsequent
// CommitTransaction to persist (§4.7).
func (e *Engine) Credit(fileNo byte, amount int32) error {
	return e.valueOp(opCredit, fileNo, amount)
}

// Debit issues opcode 0xDC with the same layout as Credit (§4.7).
func (e *Engine) Debit(fileNo byte, amount int32) error {
	return e.valueOp(opDebit, fileNo, amount)
}

// LimitedCredit issues opcode 0x1C with the same layout as Credit (§4.7).
func (e *Engine) LimitedCredit(fileNo byte, amount int32) error {
	return e.valueOp(opLimitedCredit, fileNo, amount)
}

func (e *Engine) valueOp(ins byte, fileNo byte, amount int32) error {
	req := appendI32LE([]byte{fileNo}, amount)
	_, err := e.CallChecked(ins, req)
	return err
}

// CommitTransaction persists pending Credit/Debit/LimitedCredit operations
// on the current application (opcode 0xC7, §4.7).
func (e *Engine) CommitTransaction() error {
	_, err := e.CallChecked(opCommitTransaction, nil)
	return err
}

// AbortTransaction rolls back pending value-file operations (opcode 0xA7,
// §4.7).
func (e *Engine) AbortTransaction() error {
	_, err := e.CallChecked(opAbortTransaction, nil)
	return err
}
