package session

import "fmt"

// State is a step of the session state machine.
type State int32

const (
	StateNew State = iota
	StateAwaitingPeerResponse
	StateSendingResponse
	StateKeyExchange
	StateActive
	StateEnding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateAwaitingPeerResponse:
		return "awaiting-peer-response"
	case StateSendingResponse:
		return "sending-response"
	case StateKeyExchange:
		return "key-exchange"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// EndNotice selects which side sends the closing DECLINED when a session
// ends for a reason other than the peer's own notice.
type EndNotice string

const (
	NoticeAlways    EndNotice = "always"
	NoticeInitiator EndNotice = "initiator"
	NoticeResponder EndNotice = "responder"
	NoticeNever     EndNotice = "never"
)

// ParseEndNotice validates a configured policy. The empty string selects
// NoticeAlways.
func ParseEndNotice(s string) (EndNotice, error) {
	switch EndNotice(s) {
	case "":
		return NoticeAlways, nil
	case NoticeAlways, NoticeInitiator, NoticeResponder, NoticeNever:
		return EndNotice(s), nil
	}
	return "", fmt.Errorf("session: unknown end notice policy %q", s)
}
