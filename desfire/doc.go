/*
Package desfire drives MIFARE DESFire EV1/EV2/EV3 contactless smart cards
over an ISO 7816-4 / ISO 14443-4 transport.

It covers the authentication-and-protocol engine: APDU framing, chained-frame
reassembly, transmit retry with Le-presence negotiation, reader-escape
fallback for PN532-passthrough readers, the three mutually incompatible
authentication handshakes (legacy DES/3DES, AES, and EV2 CMAC-keyed
First/NonFirst) with their session-key derivations, secure key change, and
the application/file operations built on top.

# Access Rights Encoding

The 16-bit access rights value packs four 4-bit key-slot fields (MSB→LSB):

	[Read | Write | ReadWrite | ChangeAccessRights]

On the wire this is two bytes, byte0 = [Read|Write],
byte1 = [ReadWrite|ChangeAccessRights]. A nibble is a key slot 0-13, 0xE means free (no
authentication required), 0xF means denied (never permitted). See
[PackAccessRights] and [UnpackAccessRights].

# Session Lifecycle

A [Session] starts unauthenticated. [Engine.SelectApplication] always clears
it before anything else happens. One of the Authenticate* functions
populates it; any failure inside a handshake clears it again before the
error returns to the caller. Session key material is zeroized on both
success-path teardown and failure.

# Secure Messaging Scope

This package implements session-encrypted key change (ChangeKeyEV2) and no
other secure messaging: key-set rollover and the remaining commands are sent
in plain, and ReadData/WriteData payloads stay on plain communication
settings with no MAC/ENC-mode wrapping. A caller needing encrypted or MACed
file I/O must do so above this package.
*/
package desfire
