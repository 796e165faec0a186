package order

// Status is a pipeline state. received → normalized → validated → priced →
// reserved → charged → completed, with failed reachable from any non-terminal
// state and compensating → failed once reserved stock must be handed back.
type Status string

const (
	StatusReceived     Status = "received"
	StatusNormalized   Status = "normalized"
	StatusValidated    Status = "validated"
	StatusPriced       Status = "priced"
	StatusReserved     Status = "reserved"
	StatusCharged      Status = "charged"
	StatusCompleted    Status = "completed"
	StatusCompensating Status = "compensating"
	StatusFailed       Status = "failed"
)

var transitions = map[Status][]Status{
	StatusReceived:   {StatusNormalized, StatusFailed},
	StatusNormalized: {StatusValidated, StatusFailed},
	StatusValidated:  {StatusPriced, StatusFailed},
	// a partial reservation has to be undone before the order can fail
	StatusPriced:       {StatusReserved, StatusCompensating, StatusFailed},
	StatusReserved:     {StatusCharged, StatusCompensating, StatusFailed},
	StatusCharged:      {StatusCompleted, StatusFailed},
	StatusCompensating: {StatusFailed},
}

// CanTransition reports whether from → to is a legal pipeline move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the pipeline is done with an order in this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
