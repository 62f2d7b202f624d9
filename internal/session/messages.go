// ABOUTME: Wire message shapes for the JSON-over-WebSocket control protocol.
// ABOUTME: One envelope per frame; the type field selects the payload shape.

package session

// Message types understood by the protocol. Frames of any other type are
// ignored.
const (
	TypeCommand      = "command"
	TypeRegistration = "registration"
	TypeResult       = "result"
)

// ServerMessage is an inbound frame. Only command frames carry the command
// and target fields.
type ServerMessage struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Target  string `json:"target"`
}

// Registration is sent once per connection, immediately after the handshake.
type Registration struct {
	Type string           `json:"type"`
	Data RegistrationData `json:"data"`
}

// RegistrationData identifies the agent to the control server.
type RegistrationData struct {
	AgreementID string `json:"agreement_id"`
	City        string `json:"city"`
	OS          string `json:"os"`
	Hostname    string `json:"hostname"`
}

// Result reports one completed command. Result is either a JSON-encoded
// structured measurement or a string starting with "Error:".
type Result struct {
	Type      string `json:"type"`
	Agreement string `json:"agreement"`
	City      string `json:"city"`
	Command   string `json:"command"`
	Target    string `json:"target"`
	Result    string `json:"result"`
}
