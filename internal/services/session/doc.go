// Package session runs the protocol state machine for one chat connection.
//
// A Session owns its socket from the first handshake byte until the socket
// is closed. It moves through
//
//	AwaitingPeerResponse (initiator) | SendingResponse (responder)
//	  -> KeyExchange -> Active -> Ending -> Closed
//
// and reports exactly one terminal outcome to its Observer. Outgoing chat
// messages are queued on an outbox that only the session goroutine drains,
// so there is a single writer on the socket.
package session
