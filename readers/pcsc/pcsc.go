// Package pcsc is the reference PC/SC reader adapter: it implements
// desfire.Reader by wrapping github.com/ebfe/scard.
package pcsc

import (
	"fmt"

	"github.com/ebfe/scard"
)

// Connection wraps a PC/SC card connection and implements desfire.Reader.
type Connection struct {
	ctx       *scard.Context
	card      *scard.Card
	reader    string
	readerIdx int
}

// Connect establishes a PC/SC context and connects to readerIndex (0-based).
func Connect(readerIndex int) (*Connection, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("pcsc: EstablishContext: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		ctx.Release()
		return nil, fmt.Errorf("pcsc: no readers found: %v", err)
	}
	if readerIndex < 0 || readerIndex >= len(readers) {
		ctx.Release()
		return nil, fmt.Errorf("pcsc: reader index out of range (0..%d)", len(readers)-1)
	}

	reader := readers[readerIndex]
	card, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("pcsc: connect: %w", err)
	}

	return &Connection{ctx: ctx, card: card, reader: reader, readerIdx: readerIndex}, nil
}

// Close disconnects the card and releases the PC/SC context.
func (c *Connection) Close() {
	if c == nil {
		return
	}
	if c.card != nil {
		_ = c.card.Disconnect(scard.LeaveCard)
	}
	if c.ctx != nil {
		_ = c.ctx.Release()
	}
}

// Transmit implements desfire.Reader.
func (c *Connection) Transmit(apdu []byte) ([]byte, error) {
	if c == nil || c.card == nil {
		return nil, fmt.Errorf("pcsc: connection not established")
	}
	return c.card.Transmit(apdu)
}

// Name implements desfire.Namer so the engine can detect ACR122U-class
// readers by their PC/SC name even without an explicit hint.
func (c *Connection) Name() string { return c.reader }
