// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (wire commands, session outcomes, address book
// entries) and contracts (event sink, confirmation provider, stores) only.
package domain
