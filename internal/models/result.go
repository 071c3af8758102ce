package models

// genericFailureMessage is what every failure envelope says. Callers only
// get the kind; the text itself is never specific.
const genericFailureMessage = "Error"

// Result is the uniform envelope every public operation is reported in.
type Result struct {
	Status    bool   `json:"status"`
	ErrorKind string `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Envelope converts an engine return pair into a Result.
func Envelope(payload any, err error) Result {
	if err != nil {
		return Result{
			Status:    false,
			ErrorKind: KindOf(err),
			Message:   genericFailureMessage,
		}
	}
	return Result{Status: true, Payload: payload}
}

// Success returns an envelope without payload.
func Success() Result {
	return Result{Status: true}
}
