package dan

import "github.com/godanchain/node/dan/models"

// WorkerStateKind enumerates the consensus worker's states (spec.md §4.3).
type WorkerStateKind int

const (
	Starting WorkerStateKind = iota
	Synchronizing
	Prepare
	PreCommit
	Commit
	Decide
	NextView
	Idle
)

func (k WorkerStateKind) String() string {
	switch k {
	case Starting:
		return "Starting"
	case Synchronizing:
		return "Synchronizing"
	case Prepare:
		return "Prepare"
	case PreCommit:
		return "PreCommit"
	case Commit:
		return "Commit"
	case Decide:
		return "Decide"
	case NextView:
		return "NextView"
	case Idle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// WorkerEventKind enumerates the consensus worker's events (spec.md §4.3).
type WorkerEventKind int

const (
	EventInitialized WorkerEventKind = iota
	EventSynchronized
	EventNewView
	EventPrepared
	EventPreCommitted
	EventCommitted
	EventDecided
	EventTimedOut
	EventNotPartOfCommittee
	EventBaseLayerCheckpointNotFound
	EventBaseLayerAssetRegistrationNotFound
)

func (k WorkerEventKind) String() string {
	switch k {
	case EventInitialized:
		return "Initialized"
	case EventSynchronized:
		return "Synchronized"
	case EventNewView:
		return "NewView"
	case EventPrepared:
		return "Prepared"
	case EventPreCommitted:
		return "PreCommitted"
	case EventCommitted:
		return "Committed"
	case EventDecided:
		return "Decided"
	case EventTimedOut:
		return "TimedOut"
	case EventNotPartOfCommittee:
		return "NotPartOfCommittee"
	case EventBaseLayerCheckpointNotFound:
		return "BaseLayerCheckpointNotFound"
	case EventBaseLayerAssetRegistrationNotFound:
		return "BaseLayerAssetRegistrationNotFound"
	default:
		return "Unknown"
	}
}

// ConsensusWorkerStateEvent is the typed outcome of one state's
// next_event, including any event-carried payload (spec.md §4.3
// "Events").
type ConsensusWorkerStateEvent struct {
	Kind    WorkerEventKind
	NewView models.ViewID // valid when Kind == EventNewView
	Reason  string
}

// MustShutdown reports whether this event is unrecoverable for the asset
// (spec.md §4.3 "Any BaseLayerCheckpointNotFound or
// BaseLayerAssetRegistrationNotFound is treated as unrecoverable").
func (e ConsensusWorkerStateEvent) MustShutdown() bool {
	return e.Kind == EventBaseLayerCheckpointNotFound || e.Kind == EventBaseLayerAssetRegistrationNotFound
}

// StateChanged is published on every transition (spec.md §7 "the
// consensus worker publishes StateChanged{from, to}").
type StateChanged struct {
	From WorkerStateKind
	To   WorkerStateKind
}

// EventsPublisher receives StateChanged notifications in worker-local
// total order (spec.md §5 "the published StatusInfo updates are totally
// ordered").
type EventsPublisher interface {
	Publish(StateChanged)
}
