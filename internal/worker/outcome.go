package worker

// Kind tags how a record ended.
type Kind int

const (
	// KindDelivered: the gateway accepted the message.
	KindDelivered Kind = iota + 1
	// KindRejected: the request was refused before dispatch (invalid,
	// blacklisted or rate limited).
	KindRejected
	// KindErrored: dispatch was attempted and failed, or processing broke.
	KindErrored
)

func (k Kind) String() string {
	switch k {
	case KindDelivered:
		return "delivered"
	case KindRejected:
		return "rejected"
	case KindErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Stage is a step of the per-record state machine.
type Stage int

const (
	StageReceived Stage = iota
	StageValidated
	StageGated
	StageDispatched
	StageRecorded
	StageAcknowledged
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "RECEIVED"
	case StageValidated:
		return "VALIDATED"
	case StageGated:
		return "GATED"
	case StageDispatched:
		return "DISPATCHED"
	case StageRecorded:
		return "RECORDED"
	case StageAcknowledged:
		return "ACKNOWLEDGED"
	default:
		return "UNKNOWN"
	}
}

// Outcome summarises one handled record. Code and Reason are empty for
// delivered records; LedgerID is nil when no ledger row was correlated.
type Outcome struct {
	Kind      Kind
	Stage     Stage
	RequestID string
	Code      string
	Reason    string
	LedgerID  *uint
}

func rejected(stage Stage, requestID, code, reason string) Outcome {
	return Outcome{Kind: KindRejected, Stage: stage, RequestID: requestID, Code: code, Reason: reason}
}

func errored(stage Stage, requestID, code, reason string) Outcome {
	return Outcome{Kind: KindErrored, Stage: stage, RequestID: requestID, Code: code, Reason: reason}
}
