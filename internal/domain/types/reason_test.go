package types_test

import (
	"strings"
	"testing"

	"cryptochat/internal/domain/types"
)

func TestEndReason_MessagesAreDistinct(t *testing.T) {
	seen := make(map[string]types.EndReason)
	for r := types.ReasonPeerDeclined; r <= types.ReasonConnectFailed; r++ {
		msg := r.String()
		if strings.HasPrefix(msg, "EndReason(") {
			t.Fatalf("reason %d has no message", int(r))
		}
		if prev, ok := seen[msg]; ok {
			t.Fatalf("reasons %d and %d share message %q", int(prev), int(r), msg)
		}
		seen[msg] = r
	}
}

func TestEndReason_VerificationWarnsOfTampering(t *testing.T) {
	msg := strings.ToLower(types.ReasonVerificationFailed.String())
	if !strings.Contains(msg, "tampered") || !strings.Contains(msg, "compromised") {
		t.Fatalf("verification failure message does not suggest compromise: %q", msg)
	}
}

func TestCommand_String(t *testing.T) {
	cases := map[types.Command]string{
		types.CommandAccepted: "ACCEPTED",
		types.CommandDeclined: "DECLINED",
		types.CommandMessage:  "MESSAGE",
		types.Command(9):      "Command(9)",
	}
	for c, want := range cases {
		if got := c.String(); got != want {
			t.Errorf("Command(%d).String() = %q, want %q", byte(c), got, want)
		}
	}
	if types.Command(0).Valid() || types.Command(4).Valid() {
		t.Fatal("out-of-range commands reported valid")
	}
}
