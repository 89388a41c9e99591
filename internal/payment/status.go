package payment

// Status tracks one payment checkout session from page entry to a terminal
// outcome.
type Status string

const (
	StatusPreparing            Status = "PREPARING"
	StatusAwaitingConfirmation Status = "AWAITING_CONFIRMATION"
	StatusConfirming           Status = "CONFIRMING"
	StatusConfirmationFailed   Status = "CONFIRMATION_FAILED"
	StatusSucceeded            Status = "SUCCEEDED"
	StatusOrderRecorded        Status = "ORDER_RECORDED"
	StatusOrderRecordFailed    Status = "ORDER_RECORD_FAILED"
)

// IsTerminal reports whether the session is finished. Both order outcomes are
// terminal: once money has moved there is no client-side path back.
func (s Status) IsTerminal() bool {
	return s == StatusOrderRecorded || s == StatusOrderRecordFailed
}

func (s Status) String() string { return string(s) }

var transitions = map[Status][]Status{
	StatusPreparing:            {StatusAwaitingConfirmation},
	StatusAwaitingConfirmation: {StatusConfirming, StatusPreparing},
	StatusConfirming:           {StatusSucceeded, StatusConfirmationFailed},
	StatusConfirmationFailed:   {StatusAwaitingConfirmation},
	StatusSucceeded:            {StatusOrderRecorded, StatusOrderRecordFailed},
}

// CanTransitionTo reports whether moving from one status to another is legal.
func CanTransitionTo(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
