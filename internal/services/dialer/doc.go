// Package dialer places one outbound connection.
//
// An Attempt retries connects that time out, gives up on any other error,
// and can be cancelled at any point. It reports exactly one outcome to its
// Observer: the connected socket or the reason it failed.
package dialer
