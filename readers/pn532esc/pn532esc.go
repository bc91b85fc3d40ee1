// Package pn532esc composes into a reader adapter to give it the raw CCID
// escape channel the core's transmit engine falls back to (§4.3, §4.4 step
// 5, §6) when a plain APDU exchange returns nothing usable. The engine
// itself builds the three PN532 payload variants (raw, InDataExchange,
// InCommunicateThru) and parses the D5 41 / D5 43 replies; this package
// only supplies the CCID escape framing underneath those payloads, the way
// nvx-go-acr1555ble frames its own escape commands ahead of the wire.
package pn532esc

import "fmt"

// escapeCLA is the ACR122U-class pseudo-APDU class byte for vendor escape
// commands: FF 00 00 00 Lc payload (§6).
const escapeCLA byte = 0xFF

// RawTransmitter is the underlying capability an Escaper needs: whatever
// sends bytes to the reader and returns whatever comes back, bypassing the
// card's own APDU semantics.
type RawTransmitter interface {
	Transmit(apdu []byte) ([]byte, error)
}

// Escaper implements desfire.Escaper by framing each payload as a CCID
// vendor escape command before handing it to the underlying transmitter.
type Escaper struct {
	Raw RawTransmitter
}

// New wraps raw as a desfire.Escaper.
func New(raw RawTransmitter) *Escaper {
	return &Escaper{Raw: raw}
}

// Escape frames payload as FF 00 00 00 Lc payload and sends it through the
// underlying transmitter, returning whatever bytes come back unparsed; the
// engine itself recognizes the D5 41 / D5 43 wrapper in the reply (§6).
func (c *Escaper) Escape(payload []byte) ([]byte, error) {
	if c == nil || c.Raw == nil {
		return nil, fmt.Errorf("pn532esc: no underlying transmitter configured")
	}
	if len(payload) > 0xFF {
		return nil, fmt.Errorf("pn532esc: escape payload too large (%d bytes)", len(payload))
	}
	frame := make([]byte, 0, 5+len(payload))
	frame = append(frame, escapeCLA, 0x00, 0x00, 0x00, byte(len(payload)))
	frame = append(frame, payload...)
	return c.Raw.Transmit(frame)
}
