package session

import "cryptochat/internal/domain"

// Observer receives session events. Calls are made from the session
// goroutine and must not block for long.
type Observer interface {
	// SessionStarted fires once keys are exchanged.
	SessionStarted(s *Session, info domain.SessionInfo)
	SessionMessage(s *Session, text string)
	SessionSent(s *Session, text string)
	SessionSendFailed(s *Session, text string, err error)
	// SessionEnded fires exactly once, after the socket is closed. err is
	// the underlying cause, if any.
	SessionEnded(s *Session, reason domain.EndReason, err error)
}
