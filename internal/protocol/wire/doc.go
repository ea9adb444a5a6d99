// Package wire frames the chat protocol on a byte stream.
//
// Every unit on the wire is a Frame: a one-byte tag, a big-endian uint32
// payload length and the payload. Handshake commands carry no payload;
// key exchange and message envelopes carry opaque bytes interpreted by the
// keyexchange package.
package wire
