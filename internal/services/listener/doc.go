// Package listener accepts inbound chat invitations.
//
// A Server binds the chat port, retrying with a backoff when the bind
// fails, and routes every accepted socket through the same decision:
// rate limit, then the one-session rule, then the local user's
// confirmation. The decision itself and what happens to the socket
// afterwards belong to the Handler.
package listener
