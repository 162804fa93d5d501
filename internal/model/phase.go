package model

// BuildPhase is the server-reported lifecycle phase of a build session.
type BuildPhase string

const (
	PhasePlanning     BuildPhase = "planning"
	PhaseImplementing BuildPhase = "implementing"
	PhaseVerifying    BuildPhase = "verifying"
	PhaseReviewing    BuildPhase = "reviewing"
	PhaseIterating    BuildPhase = "iterating"
	PhaseReady        BuildPhase = "ready"
	PhaseAborted      BuildPhase = "aborted"
	PhaseError        BuildPhase = "error"
)

// Terminal reports whether the phase ends the session. A terminal session is
// not "active": no stream is held open for it and no step may be issued.
func (p BuildPhase) Terminal() bool {
	switch p {
	case PhaseReady, PhaseAborted, PhaseError:
		return true
	}
	return false
}

// Valid reports whether p is a known phase value.
func (p BuildPhase) Valid() bool {
	switch p {
	case PhasePlanning, PhaseImplementing, PhaseVerifying, PhaseReviewing,
		PhaseIterating, PhaseReady, PhaseAborted, PhaseError:
		return true
	}
	return false
}

var phaseTransitions = map[BuildPhase]map[BuildPhase]bool{
	PhasePlanning: {
		PhaseImplementing: true,
		PhaseAborted:      true,
		PhaseError:        true,
	},
	PhaseImplementing: {
		PhaseVerifying: true,
		PhaseAborted:   true,
		PhaseError:     true,
	},
	PhaseVerifying: {
		PhaseReviewing: true,
		PhaseIterating: true,
		PhaseAborted:   true,
		PhaseError:     true,
	},
	PhaseReviewing: {
		PhaseIterating: true,
		PhaseReady:     true,
		PhaseAborted:   true,
		PhaseError:     true,
	},
	PhaseIterating: {
		PhaseImplementing: true,
		PhaseVerifying:    true,
		PhaseAborted:      true,
		PhaseError:        true,
	},
}

// CanTransitionPhase reports whether a locally driven phase change from -> to
// is allowed. Self transitions are allowed (snapshots may repeat the phase).
// Server-authoritative snapshots are applied wholesale and bypass this check.
func CanTransitionPhase(from, to BuildPhase) bool {
	if from == to {
		return true
	}
	return phaseTransitions[from][to]
}
