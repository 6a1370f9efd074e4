package domain

// FailureKind classifies why the answer generator fell back to a canned reply.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureMissingCredential FailureKind = "missing_credential"
	FailureAuth              FailureKind = "auth"
	FailureRateLimit         FailureKind = "rate_limit"
	FailureTimeout           FailureKind = "timeout"
	FailureConnection        FailureKind = "connection"
	FailureMalformed         FailureKind = "malformed"
	FailureServer            FailureKind = "server"
	FailureUnexpected        FailureKind = "unexpected"
)

// Answer is what the farmer hears back. Text is never empty.
type Answer struct {
	Text    string
	Failure FailureKind
}

func (a Answer) Failed() bool {
	return a.Failure != FailureNone
}

// FallbackAnswer returns the canned Urdu reply for a failure kind.
func FallbackAnswer(kind FailureKind) Answer {
	text, ok := fallbackMessages[kind]
	if !ok {
		text = fallbackMessages[FailureUnexpected]
		kind = FailureUnexpected
	}
	return Answer{Text: text, Failure: kind}
}
