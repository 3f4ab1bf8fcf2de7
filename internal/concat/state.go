package concat

// Phase is the coarse status of a run.
type Phase int

const (
	Running Phase = iota
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is one observation of a run. Progress is set while Running, Document
// once Succeeded and Err once Failed.
type State struct {
	Phase    Phase
	Progress string
	Document *Document
	Err      error
}

// Reporter receives run states in order. Calls happen on the goroutine
// running the orchestrator.
type Reporter interface {
	Report(State)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(State)

func (f ReporterFunc) Report(s State) { f(s) }

type discardReporter struct{}

func (discardReporter) Report(State) {}
