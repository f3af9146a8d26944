package engine

// Phase names, in execution order.
const (
	PhaseFrameStart   = "frame_start"
	PhaseTime         = "time"
	PhaseEnvironment  = "environment"
	PhaseAct          = "act"
	PhaseLifecycle    = "lifecycle"
	PhaseCommitA      = "commit_a"
	PhaseSpawn        = "spawn"
	PhaseCommitB      = "commit_b"
	PhaseCollision    = "collision"
	PhaseCommitC      = "commit_c"
	PhaseInteraction  = "interaction"
	PhaseCommitD      = "commit_d"
	PhaseReproduction = "reproduction"
	PhaseFrameEnd     = "frame_end"
)

// PhaseOrder is the fixed sequence every Step runs. All phases run every
// tick, even when every system inside one is disabled.
var PhaseOrder = []string{
	PhaseFrameStart,
	PhaseTime,
	PhaseEnvironment,
	PhaseAct,
	PhaseLifecycle,
	PhaseCommitA,
	PhaseSpawn,
	PhaseCommitB,
	PhaseCollision,
	PhaseCommitC,
	PhaseInteraction,
	PhaseCommitD,
	PhaseReproduction,
	PhaseFrameEnd,
}

func isCommit(phase string) bool {
	switch phase {
	case PhaseCommitA, PhaseCommitB, PhaseCommitC, PhaseCommitD:
		return true
	}
	return false
}
