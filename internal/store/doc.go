// Package store provides file-based persistence for the local address book.
//
// Data is serialised as JSON and written atomically (temp file, then
// rename) under the configured home directory. Stores are safe for
// concurrent use. Nothing here ever holds key material or message text.
package store
