package handshake

import "testing"

func TestStateStringKnownValues(t *testing.T) {
	cases := map[State]string{
		StateHelloRequest:  "HELLO_REQUEST",
		StateServerHello:   "SERVER_HELLO",
		StateClientFinished: "CLIENT_FINISHED",
		StateHandshakeOver: "HANDSHAKE_OVER",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestStateStringOutOfRange(t *testing.T) {
	if got := State(999).String(); got != "UNKNOWN_STATE" {
		t.Errorf("State(999).String() = %q, want UNKNOWN_STATE", got)
	}
}

func TestStepResultString(t *testing.T) {
	cases := map[StepResult]string{
		ResultContinue:  "continue",
		ResultWantRead:  "want_read",
		ResultWantWrite: "want_write",
		ResultGotTicket: "got_ticket",
		ResultDone:      "done",
		ResultFatal:     "fatal",
		StepResult(42):  "unknown",
	}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Errorf("StepResult(%d).String() = %q, want %q", r, got, want)
		}
	}
}
