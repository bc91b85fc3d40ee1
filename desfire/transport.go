package desfire

import "time"

// Reader is the minimal contract the core demands of a reader adapter
// (§4.3, §6): send raw bytes, get raw bytes back.
type Reader interface {
	Transmit(apdu []byte) ([]byte, error)
}

// Escaper is an optional capability: a raw CCID escape channel used to
// wrap DESFire APDUs inside PN532 framing for readers that need it
// (§4.3, §6).
type Escaper interface {
	Escape(req []byte) ([]byte, error)
}

// ISODepEnsurer is an optional capability: a hook that forces ISO-DEP
// activation (e.g. a PN532 RATS) before the first exchange (§4.3).
type ISODepEnsurer interface {
	EnsureISODep() error
}

// Namer is an optional identity hint a Reader may expose for quirk
// selection (§4.3, §9 "reader quirks as data").
type Namer interface {
	Name() string
}

// ACR122UHinter lets a Reader declare the escape-fallback quirk directly,
// bypassing the Name()-substring heuristic.
type ACR122UHinter interface {
	IsACR122U() bool
}

// Engine wraps a Reader with Le-presence negotiation, one-shot transport
// retry, escape fallback, and multi-frame reassembly (§4.4). It owns no
// card-level state beyond the reader-quirk fields; the Session lives
// alongside it and is updated by the Authenticate* functions and
// SelectApplication.
type Engine struct {
	Reader Reader

	// preferNoLe is the sticky Le-presence bit (§4.4, §5 "reader-quirk
	// accommodation"): once a reader's preferred form is learned it stays
	// for the rest of the session.
	preferNoLe bool

	// ChunkSize bounds how many payload bytes go in one WriteData frame
	// before a continuation is needed (§4.4). Default 40, a conservative
	// value well under the 59-byte ceiling some PCD/PICC pairs impose.
	ChunkSize int

	// RetryDelay is how long the engine waits before the one-shot retry
	// on a transport-level failure (§4.4 step 1). Default ~80ms.
	RetryDelay time.Duration
}

// NewEngine builds an Engine with the default Le preference (prefer no
// Le) and a conservative default chunk size.
func NewEngine(r Reader) *Engine {
	return &Engine{
		Reader:     r,
		preferNoLe: true,
		ChunkSize:  40,
		RetryDelay: 80 * time.Millisecond,
	}
}

func (e *Engine) isACR122U() bool {
	if h, ok := e.Reader.(ACR122UHinter); ok {
		return h.IsACR122U()
	}
	if n, ok := e.Reader.(Namer); ok {
		name := n.Name()
		for i := 0; i+7 <= len(name); i++ {
			if equalFoldASCII(name[i:i+7], "ACR122U") {
				return true
			}
		}
	}
	return false
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func (e *Engine) transmitOnce(apdu []byte) ([]byte, error) {
	resp, err := e.Reader.Transmit(apdu)
	if err == nil {
		return resp, nil
	}
	time.Sleep(e.RetryDelay)
	resp, err2 := e.Reader.Transmit(apdu)
	if err2 != nil {
		return nil, &TransportError{Cause: err2}
	}
	return resp, nil
}

// escapeFallback tries, in order, raw-APDU escape, PN532 InDataExchange,
// and PN532 InCommunicateThru, parsing a D5 41 / D5 43 positive response
// (§4.4 step 5, §6).
func (e *Engine) escapeFallback(apdu []byte) (ParsedResponse, bool, error) {
	esc, ok := e.Reader.(Escaper)
	if !ok {
		return ParsedResponse{}, false, nil
	}

	variants := [][]byte{
		apdu,
		append([]byte{0xD4, 0x40, 0x01}, apdu...),
		append([]byte{0xD4, 0x42}, apdu...),
	}
	for i, v := range variants {
		raw, err := esc.Escape(v)
		if err != nil {
			continue
		}
		payload, matched := matchPN532Response(raw, i)
		if !matched {
			continue
		}
		parsed, err := ParseResponse(payload)
		if err != nil {
			continue
		}
		return parsed, true, nil
	}
	return ParsedResponse{}, false, nil
}

// matchPN532Response recognizes either a raw APDU echo or a PN532
// D5 41 00 / D5 43 00 wrapper and returns the trailing payload (§6).
func matchPN532Response(raw []byte, variant int) ([]byte, bool) {
	if variant == 0 {
		return raw, true
	}
	want := byte(0x41)
	if variant == 2 {
		want = 0x43
	}
	if len(raw) >= 3 && raw[0] == 0xD5 && raw[1] == want && raw[2] == 0x00 {
		return raw[3:], true
	}
	return nil, false
}

// transmitAttempt runs the full per-attempt policy of §4.4 steps 1-4 for
// one Le-presence form, returning (parsed, advanceToNextForm, error).
func (e *Engine) transmitAttempt(apdu []byte) (ParsedResponse, bool, error) {
	resp, err := e.transmitOnce(apdu)
	if err != nil {
		return ParsedResponse{}, false, err
	}
	if len(resp) < 2 {
		return ParsedResponse{}, true, nil // empty/short: try other form or escape
	}
	parsed, err := ParseResponse(resp)
	if err != nil {
		return ParsedResponse{}, true, nil
	}
	if IsSuccess(parsed.SW()) || IsContinuation(parsed.SW()) {
		return parsed, false, nil
	}
	if IsLengthError(parsed.SW()) {
		return parsed, true, nil
	}
	return parsed, false, nil
}

// Transceive sends one logical command, trying the preferred Le form
// first, the opposite form second, and reader escape fallback last
// (§4.4). ins/data are the command opcode and its data bytes; le is used
// only when the attempted form carries Le.
func (e *Engine) Transceive(ins byte, data []byte, le byte) (ParsedResponse, error) {
	forms := []bool{e.preferNoLe, !e.preferNoLe}

	var lastParsed ParsedResponse
	var sawResponse bool

	for _, noLe := range forms {
		apdu := BuildAPDU(ins, data, !noLe, le)
		parsed, advance, err := e.transmitAttempt(apdu)
		if err != nil {
			return ParsedResponse{}, err
		}
		if !advance {
			e.preferNoLe = noLe
			return parsed, nil
		}
		if len(parsed.Data) > 0 || parsed.SW1 != 0 || parsed.SW2 != 0 {
			lastParsed = parsed
			sawResponse = true
		}
	}

	// Both forms exhausted on empty/short response: readers that advertise
	// the escape capability get the escape fallback.
	_, canEscape := e.Reader.(Escaper)
	if !sawResponse && canEscape && e.isACR122U() {
		if parsed, ok, err := e.escapeFallback(BuildAPDU(ins, data, !e.preferNoLe, le)); err == nil && ok {
			return parsed, nil
		}
	} else if !sawResponse {
		// Last resort without an escape path: toggle Le once more and
		// accept whatever comes back.
		parsed, _, err := e.transmitAttempt(BuildAPDU(ins, data, !forms[0], le))
		if err != nil {
			return ParsedResponse{}, err
		}
		if len(parsed.Data) > 0 || parsed.SW1 != 0 || parsed.SW2 != 0 {
			lastParsed = parsed
			sawResponse = true
		}
	}

	if sawResponse {
		if IsLengthError(lastParsed.SW()) {
			return ParsedResponse{}, &StatusError{Cmd: ins, SW: lastParsed.SW()}
		}
		return lastParsed, nil
	}
	return ParsedResponse{}, &TransportError{}
}

// TransceiveAdditionalFrame issues opcode 0xAF with no data, using the
// engine's current Le preference, for continuation-frame fetches.
func (e *Engine) TransceiveAdditionalFrame() (ParsedResponse, error) {
	return e.Transceive(opAdditionalFrame, nil, 0x00)
}

// Call issues one command and transparently reassembles any 91 AF
// continuation chain, returning the concatenated payload and the final
// status word (§4.4 "Multi-frame reassembly"). Callers of high-level ops
// never see the intermediate frames (§9 "Do not hide continuation").
func (e *Engine) Call(ins byte, data []byte) ([]byte, uint16, error) {
	parsed, err := e.Transceive(ins, data, 0x00)
	if err != nil {
		return nil, 0, err
	}
	out := append([]byte{}, parsed.Data...)
	sw := parsed.SW()
	for IsContinuation(sw) {
		next, err := e.TransceiveAdditionalFrame()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, next.Data...)
		sw = next.SW()
	}
	return out, sw, nil
}

// CallChecked is Call plus translating a non-success final status into a
// *StatusError.
func (e *Engine) CallChecked(ins byte, data []byte) ([]byte, error) {
	out, sw, err := e.Call(ins, data)
	if err != nil {
		return nil, err
	}
	if !IsSuccess(sw) {
		return nil, &StatusError{Cmd: ins, SW: sw}
	}
	return out, nil
}

// WriteChunked emits the first frame under ins with as much of data as
// fits in ChunkSize, then continues with ADDITIONAL_FRAME frames until
// data is exhausted (§4.4, §4.7 WriteData, §8 scenario 6).
func (e *Engine) WriteChunked(ins byte, header, data []byte) error {
	chunk := e.ChunkSize
	if chunk <= 0 {
		chunk = 40
	}

	firstLen := chunk
	if firstLen > len(data) {
		firstLen = len(data)
	}

	first := make([]byte, 0, len(header)+firstLen)
	first = append(first, header...)
	first = append(first, data[:firstLen]...)

	parsed, err := e.Transceive(ins, first, 0x00)
	if err != nil {
		return err
	}
	sw := parsed.SW()
	offset := firstLen
	for IsContinuation(sw) && offset < len(data) {
		end := offset + chunk
		if end > len(data) {
			end = len(data)
		}
		parsed, err = e.Transceive(opAdditionalFrame, data[offset:end], 0x00)
		if err != nil {
			return err
		}
		sw = parsed.SW()
		offset = end
	}
	for IsContinuation(sw) {
		parsed, err = e.TransceiveAdditionalFrame()
		if err != nil {
			return err
		}
		sw = parsed.SW()
	}
	if !IsSuccess(sw) {
		return &StatusError{Cmd: ins, SW: sw}
	}
	return nil
}
