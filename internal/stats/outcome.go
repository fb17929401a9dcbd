package stats

// Outcome classifies a single dispatch.
type Outcome int

const (
	Success Outcome = iota
	TransportFailure
	ParseFailure
	MismatchFailure

	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case TransportFailure:
		return "transport"
	case ParseFailure:
		return "parse"
	case MismatchFailure:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome counts against the run.
func (o Outcome) Failed() bool {
	return o != Success
}
