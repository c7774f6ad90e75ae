package trading

// SessionState is the handshake position of a session.
type SessionState uint8

const (
	SessionStateConnecting SessionState = iota
	SessionStateAuthenticating
	SessionStateLoggingIn
	SessionStateConfirmingSettlement
	SessionStateReady
	SessionStateFailed
)

var sessionStateNames = []string{
	"connecting",
	"authenticating",
	"loggingIn",
	"confirmingSettlement",
	"ready",
	"failed",
}

func (s SessionState) String() string {
	if int(s) < len(sessionStateNames) {
		return sessionStateNames[s]
	}
	panic("invalid session state string conversion")
}
