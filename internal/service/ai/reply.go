package ai

// FailureKind classifies why a dispatch produced no model content.
type FailureKind string

const (
	// FailureTransport covers connection-level errors, including timeouts.
	FailureTransport FailureKind = "transport"
	// FailureStatus covers non-2xx answers from the model endpoint.
	FailureStatus FailureKind = "status"
	// FailureMalformed covers 2xx answers missing the expected response field.
	FailureMalformed FailureKind = "malformed"
)

// Failure records a classified dispatch error.
type Failure struct {
	Kind FailureKind
	Err  error
}

// Reply is the normalized outcome of one dispatch. A failed dispatch still
// yields a Reply: internal callers branch on Failure, while the transcript
// receives DisplayContent.
type Reply struct {
	Content string
	Failure *Failure
}

// Failed reports whether the dispatch produced an error instead of content.
func (r Reply) Failed() bool {
	return r.Failure != nil
}

// DisplayContent renders the reply for the transcript. Failures become
// in-band assistant text so the conversation continues past them.
func (r Reply) DisplayContent() string {
	if r.Failure != nil {
		return "Error: " + r.Failure.Err.Error()
	}
	return r.Content
}

func failure(kind FailureKind, err error) Reply {
	return Reply{Failure: &Failure{Kind: kind, Err: err}}
}
