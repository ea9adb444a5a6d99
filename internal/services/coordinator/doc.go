// Package coordinator enforces the one-conversation rule.
//
// The Coordinator holds at most one outgoing attempt or session. It routes
// user actions (connect, cancel, stop, send) to whichever is current,
// answers the listener's accept decisions and forwards every outcome to
// the application's EventSink. Terminal events clear the held reference so
// the next conversation can begin.
package coordinator
