package systems

// System names. These double as perf labels and as the keys accepted by the
// engine's SetSystemEnabled.
const (
	NameDayNight     = "day_night"
	NameEnvironment  = "environment"
	NameBehavior     = "behavior"
	NameLifecycle    = "lifecycle"
	NameSpawn        = "spawn"
	NameCollision    = "collision"
	NameContest      = "contest"
	NameReproduction = "reproduction"
)

// SystemInfo describes a simulation system for debug output.
type SystemInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "environment", "agents", "lifecycle")
}

// SystemRegistry holds metadata about all systems.
// This centralizes system naming so debug output and the perf tracker stay in sync.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all built-in systems.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all built-in systems to the registry.
// Update this when adding new systems.
func (r *SystemRegistry) registerDefaults() {
	r.Register(SystemInfo{ID: NameDayNight, Name: "Day/Night", Description: "Advances the light cycle and activity modifier", Category: "environment"})
	r.Register(SystemInfo{ID: NameEnvironment, Name: "Environment", Description: "Scales detection range by agent density", Category: "environment"})

	r.Register(SystemInfo{ID: NameBehavior, Name: "Behavior", Description: "Evaluates steering algorithms, moves agents, pays metabolism", Category: "agents"})

	r.Register(SystemInfo{ID: NameLifecycle, Name: "Lifecycle", Description: "Queues removal of agents flagged for death", Category: "lifecycle"})
	r.Register(SystemInfo{ID: NameSpawn, Name: "Spawn", Description: "Spawns food, regrows resources, respawns founders", Category: "lifecycle"})
	r.Register(SystemInfo{ID: NameCollision, Name: "Collision", Description: "Resolves eating and grazing on contact", Category: "physics"})
	r.Register(SystemInfo{ID: NameContest, Name: "Contest", Description: "Energy contests between touching agents", Category: "interaction"})
	r.Register(SystemInfo{ID: NameReproduction, Name: "Reproduction", Description: "Mating and budding with crossover and mutation", Category: "lifecycle"})
}

// Register adds a system to the registry. A repeated ID replaces the
// description but keeps the original position.
func (r *SystemRegistry) Register(info SystemInfo) {
	if _, ok := r.byID[info.ID]; ok {
		for i := range r.systems {
			if r.systems[i].ID == info.ID {
				r.systems[i] = info
			}
		}
	} else {
		r.systems = append(r.systems, info)
	}
	r.byID[info.ID] = info
}

// Get returns system info by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a system ID.
// Falls back to the ID itself if not found.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all registered systems.
func (r *SystemRegistry) All() []SystemInfo {
	return r.systems
}

// ByCategory returns systems filtered by category.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var result []SystemInfo
	for _, info := range r.systems {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// IDs returns all system IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}
