// Package engine runs the fixed-order phase loop over the entity store.
//
// One Step advances exactly one tick. Systems never change the store's
// structure directly: spawns and removals go through the mutation queue and
// are applied only at the four commit phases and at frame end, removals
// first. The spatial index is rebuilt once per tick at frame end, so entities
// spawned mid-tick become visible to proximity queries on the next tick.
package engine

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/pthm-cable/genesis/behavior"
	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/rng"
	"github.com/pthm-cable/genesis/spatial"
	"github.com/pthm-cable/genesis/systems"
	"github.com/pthm-cable/genesis/telemetry"
)

// PanicError wraps a value recovered from a system's Update.
type PanicError struct {
	System string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.System, e.Value)
}

// slot is one registered system and its failure bookkeeping.
type slot struct {
	sys         systems.System
	phase       string
	consecutive int
	failures    int
	autoOff     bool
}

// Engine owns the world state and advances it one tick at a time. It is not
// safe for concurrent use.
type Engine struct {
	opts   Options
	logger *slog.Logger
	runID  string

	cfg       *config.Config
	seed      int64
	rng       *rng.RNG
	store     *entity.Store
	queue     *entity.Queue
	grid      *spatial.Grid
	env       systems.Env
	behaviors *behavior.Registry
	schema    *genome.Schema
	ctx       *systems.Context

	slots   []*slot
	byPhase map[string][]*slot
	byName  map[string]*slot
	info    *systems.SystemRegistry

	eco       *telemetry.Ecosystem
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	window    *telemetry.WindowStats

	frame  uint64
	phase  string // non-empty while a Step is running
	paused bool
	dirty  bool
	ready  bool
}

// New creates an engine. Call Reset before stepping it.
func New(opts Options) *Engine {
	return &Engine{
		opts:   opts,
		logger: opts.logger(),
		runID:  opts.RunID,
		info:   systems.NewSystemRegistry(),
		perf:   telemetry.NewPerfCollector(60),
	}
}

// guard panics when a privileged operation is attempted inside a tick.
func (e *Engine) guard(op string) {
	if e.phase != "" {
		panic(&entity.OrderingViolation{Op: op, Phase: e.phase, Frame: e.frame})
	}
}

// Reset discards all state and builds a fresh world from seed and cfg. A nil
// cfg uses the embedded defaults. cfg is cloned; later edits by the caller
// have no effect.
func (e *Engine) Reset(seed int64, cfg *config.Config) error {
	e.guard("reset")
	if err := e.reset(seed, cfg); err != nil {
		return err
	}
	e.populate()
	e.reindex()
	e.eco.Rebuild(e.frame, e.store)
	e.logger.Info("reset",
		"seed", seed,
		"agents", e.store.Count(components.KindAgent),
		"entities", e.store.Len(),
	)
	return nil
}

func (e *Engine) reset(seed int64, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine reset: %w", err)
	}
	strategy, err := genome.ParseStrategy(cfg.Genome.Crossover)
	if err != nil {
		return fmt.Errorf("engine reset: %w", err)
	}

	reg := behavior.NewRegistry(cfg.Genome.DefaultAlgorithm, e.logger)
	if err := behavior.RegisterBuiltins(reg, seed, cfg.Behavior.WanderScale, cfg.Behavior.CrowdRadius); err != nil {
		return fmt.Errorf("engine reset: %w", err)
	}
	if e.opts.Algorithms != nil {
		for _, a := range e.opts.Algorithms(seed, cfg) {
			if err := reg.Register(a); err != nil {
				return fmt.Errorf("engine reset: %w", err)
			}
		}
	}
	if _, ok := reg.Lookup(cfg.Genome.DefaultAlgorithm); !ok {
		return fmt.Errorf("engine reset: default algorithm %q is not registered", cfg.Genome.DefaultAlgorithm)
	}

	e.cfg = cfg
	e.seed = seed
	e.rng = rng.New(seed)
	e.store = entity.NewStore()
	e.queue = entity.NewQueue()
	e.grid = spatial.NewGrid(cfg.World.Width, cfg.World.Height, cfg.World.GridCellSize)
	e.env = systems.DefaultEnv()
	e.behaviors = reg
	e.schema = genome.SchemaFromConfig(cfg.Genome.Traits)

	ctx := systems.NewContext(e.store, e.queue)
	ctx.RNG = e.rng
	ctx.Config = cfg
	ctx.Grid = e.grid
	ctx.Env = &e.env
	ctx.Behaviors = reg
	ctx.Schema = e.schema
	ctx.Strategy = strategy
	e.ctx = ctx

	e.slots = nil
	e.byPhase = make(map[string][]*slot)
	e.byName = make(map[string]*slot)
	e.register(PhaseTime, systems.NewDayNight())
	e.register(PhaseEnvironment, systems.NewEnvironment())
	e.register(PhaseAct, systems.NewBehavior())
	e.register(PhaseLifecycle, systems.NewLifecycle())
	e.register(PhaseSpawn, systems.NewSpawn(seed))
	e.register(PhaseCollision, systems.NewCollision())
	for _, s := range e.opts.interactions(cfg) {
		e.register(PhaseInteraction, s)
	}
	e.register(PhaseReproduction, systems.NewReproduction())

	e.eco = telemetry.NewEcosystem()
	e.collector = telemetry.NewCollector(cfg.Telemetry.StatsWindow)
	e.window = nil
	e.frame = 0
	e.phase = ""
	e.dirty = true
	e.ready = true
	return nil
}

// register appends s to phase. A repeated name replaces nothing: the second
// system is still run, but SetSystemEnabled addresses the first.
func (e *Engine) register(phase string, s systems.System) {
	sl := &slot{sys: s, phase: phase}
	e.slots = append(e.slots, sl)
	e.byPhase[phase] = append(e.byPhase[phase], sl)
	if _, ok := e.byName[s.Name()]; !ok {
		e.byName[s.Name()] = sl
	}
	if _, ok := e.info.Get(s.Name()); !ok {
		e.info.Register(systems.SystemInfo{ID: s.Name(), Name: s.Name(), Category: phase})
	}
}

// populate inserts the initial population through the privileged path.
func (e *Engine) populate() {
	pop := e.cfg.Population
	for i := 0; i < pop.InitialAgents; i++ {
		p := systems.Founder(e.cfg, e.schema, e.behaviors, e.rng, systems.RandomPosition(e.cfg, e.rng))
		e.insert(p)
	}
	for i := 0; i < pop.InitialResources; i++ {
		e.insert(entity.Prototype{
			Kind:     components.KindResource,
			Position: systems.RandomPosition(e.cfg, e.rng),
			Energy:   components.Energy{Value: e.cfg.Energy.ResourceInitial, Capacity: e.cfg.Energy.ResourceCapacity},
		})
	}
	for i := 0; i < pop.InitialConsumables; i++ {
		e.insert(entity.Prototype{
			Kind:     components.KindConsumable,
			Position: systems.RandomPosition(e.cfg, e.rng),
			Energy:   components.Energy{Value: e.cfg.Spawn.FoodEnergy},
		})
	}
	for i := 0; i < pop.InitialDecorations; i++ {
		e.insert(entity.Prototype{
			Kind:     components.KindDecoration,
			Position: systems.RandomPosition(e.cfg, e.rng),
		})
	}
}

// Step advances exactly one tick. It does nothing while paused or before
// the first Reset.
func (e *Engine) Step() {
	if !e.ready || e.paused {
		return
	}
	defer func() { e.phase = "" }()

	e.perf.StartTick()
	for _, phase := range PhaseOrder {
		e.phase = phase
		e.perf.StartPhase(phase)
		e.runPhase(phase)
		if e.opts.OnPhase != nil {
			e.opts.OnPhase(e.frame, phase)
		}
	}
	e.perf.EndTick()

	e.opts.Metrics.ObserveTick(e.frame, e.perf.LastTick())
	e.opts.Metrics.SetPopulation(e.eco.Stats())
	e.opts.Metrics.SetSubstitutions(e.behaviors.Substitutions())
}

func (e *Engine) runPhase(phase string) {
	switch {
	case phase == PhaseFrameStart:
		e.frame++
		if e.dirty {
			e.reindex()
		}
	case isCommit(phase):
		e.commit()
	case phase == PhaseFrameEnd:
		e.commit()
		e.reindex()
		e.eco.Rebuild(e.frame, e.store)
		e.flush()
	default:
		for _, sl := range e.byPhase[phase] {
			e.runSystem(sl)
		}
	}
}

// runSystem calls one Update in isolation. A failure rolls back the
// requests the call queued; component edits it made before failing stay.
func (e *Engine) runSystem(sl *slot) {
	if !sl.sys.Enabled() {
		return
	}
	name := sl.sys.Name()
	e.ctx.Frame = e.frame
	e.ctx.Phase = sl.phase
	e.ctx.System = name

	mark := e.queue.Mark()
	err := e.update(sl.sys)
	if err == nil {
		sl.consecutive = 0
		return
	}

	e.queue.Rollback(mark)
	sl.consecutive++
	sl.failures++
	e.opts.Metrics.IncSystemFailure(name)

	attrs := []any{"system", name, "frame", e.frame, "error", err}
	if pe, ok := err.(*PanicError); ok {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	e.logger.Error("system failed", attrs...)

	if limit := e.cfg.Engine.FailureLimit; limit > 0 && sl.consecutive >= limit {
		sl.sys.SetEnabled(false)
		sl.autoOff = true
		e.logger.Warn("system disabled", "system", name, "frame", e.frame, "failures", sl.consecutive)
	}
}

func (e *Engine) update(s systems.System) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if v, ok := r.(*entity.OrderingViolation); ok {
			panic(v)
		}
		err = &PanicError{System: s.Name(), Value: r, Stack: debug.Stack()}
	}()
	return s.Update(e.ctx)
}

// commit applies queued removals, then queued spawns, each in request order.
func (e *Engine) commit() {
	for _, op := range e.queue.DrainRemovals() {
		e.delete(op.ID, op.Reason)
	}
	for _, op := range e.queue.DrainSpawns() {
		id, ok := e.store.Insert(op.Prototype, e.frame)
		if !ok {
			continue
		}
		kind, _ := e.store.Kind(id)
		e.emit(telemetry.NewBirthEvent(e.frame, id, kind, op.Reason, e.store.Heritage(id)))
	}
}

// delete removes id from the store and emits its death event.
func (e *Engine) delete(id entity.ID, reason string) bool {
	kind, ok := e.store.Kind(id)
	if !ok {
		return false
	}
	var age int
	if v := e.store.Vitals(id); v != nil {
		age = v.Age
	}
	if !e.store.Delete(id) {
		return false
	}
	if reason == "" {
		reason = components.CauseExternal
	}
	e.emit(telemetry.NewDeathEvent(e.frame, id, kind, reason, age))
	return true
}

func (e *Engine) emit(ev telemetry.Event) {
	e.eco.Observe(ev)
	e.collector.Observe(ev)
	e.opts.Metrics.Observe(ev)
	if e.opts.OnEvent != nil {
		e.opts.OnEvent(ev)
	}
}

// reindex rebuilds the spatial index from committed positions.
func (e *Engine) reindex() {
	ids := e.store.IDs(components.MaskAll)
	entries := make([]spatial.Entry, 0, len(ids))
	for _, id := range ids {
		kind, _ := e.store.Kind(id)
		entries = append(entries, spatial.Entry{ID: id, Kind: kind, Position: *e.store.Position(id)})
	}
	e.grid.Rebuild(entries)
	e.dirty = false
}

// flush closes the telemetry window when it is due.
func (e *Engine) flush() {
	if !e.collector.ShouldFlush(e.frame) {
		return
	}
	ws := e.collector.Flush(e.frame, e.eco.Stats(), e.sample())
	e.window = &ws
	if e.opts.OnWindow != nil {
		e.opts.OnWindow(ws)
	}
}

// sample gathers per-agent values for window stats.
func (e *Engine) sample() telemetry.PopulationSample {
	ids := e.store.IDs(components.Mask(components.KindAgent))
	specs := e.schema.Specs()
	s := telemetry.PopulationSample{
		Energies:   make([]float64, 0, len(ids)),
		Traits:     make([]telemetry.TraitSample, len(specs)),
		Algorithms: make(map[string]int),
	}
	for i, sp := range specs {
		s.Traits[i] = telemetry.TraitSample{Name: sp.Name, Min: sp.Min, Max: sp.Max, Values: make([]float64, 0, len(ids))}
	}
	for _, id := range ids {
		if en := e.store.Energy(id); en != nil {
			s.Energies = append(s.Energies, en.Value)
		}
		h := e.store.Heritage(id)
		if h == nil || h.Genome == nil {
			continue
		}
		s.Algorithms[h.Genome.Algorithm]++
		for i, sp := range specs {
			s.Traits[i].Values = append(s.Traits[i].Values, h.Genome.Value(sp.Name, sp.Default))
		}
	}
	return s
}

// RequestSpawn queues p for the next commit point and returns the id it
// will have. A zero p.ID is allocated; an id already live or pending is
// refused.
func (e *Engine) RequestSpawn(p entity.Prototype, reason string) (entity.ID, bool) {
	if !e.ready {
		return 0, false
	}
	if p.Kind == components.KindAgent {
		p.Genome = e.conform(p.Genome)
	}
	return e.ctx.RequestSpawn(p, reason)
}

// RequestRemove queues id for removal at the next commit point. Removing an
// id whose spawn is still pending cancels the spawn.
func (e *Engine) RequestRemove(id entity.ID, reason string) bool {
	if !e.ready {
		return false
	}
	return e.ctx.RequestRemove(id, reason)
}

// Insert adds p to the store immediately. Privileged: it panics with
// *entity.OrderingViolation when called while a tick is running. Returns 0
// when the prototype is refused.
func (e *Engine) Insert(p entity.Prototype) entity.ID {
	e.guard("insert")
	if !e.ready {
		return 0
	}
	id := e.insert(p)
	e.eco.Rebuild(e.frame, e.store)
	return id
}

func (e *Engine) insert(p entity.Prototype) entity.ID {
	if p.Kind == components.KindAgent {
		p.Genome = e.conform(p.Genome)
	}
	id, ok := e.store.Insert(p, e.frame)
	if !ok {
		return 0
	}
	if p.Kind == components.KindAgent {
		e.eco.NoteGeneration(p.Generation)
	}
	e.dirty = true
	return id
}

// conform returns a copy of g with traits clamped to the schema and an
// algorithm the registry knows. A nil genome gets schema defaults.
func (e *Engine) conform(g *genome.Genome) *genome.Genome {
	if g == nil {
		g = e.schema.New(nil)
		g.Algorithm = e.behaviors.Default()
	} else {
		g = g.Clone()
		g.Traits = e.schema.Conform(g.Traits)
	}
	_ = e.behaviors.Adopt(g)
	return g
}

// Remove deletes id immediately and records its death with reason.
// Privileged: it panics with *entity.OrderingViolation when called while a
// tick is running.
func (e *Engine) Remove(id entity.ID, reason string) bool {
	e.guard("remove")
	if !e.ready {
		return false
	}
	if !e.delete(id, reason) {
		return false
	}
	e.dirty = true
	e.eco.Rebuild(e.frame, e.store)
	return true
}

// SetSystemEnabled toggles the named system. Enabling clears its failure
// streak. Returns false for an unknown name.
func (e *Engine) SetSystemEnabled(name string, enabled bool) bool {
	sl, ok := e.byName[name]
	if !ok {
		return false
	}
	sl.sys.SetEnabled(enabled)
	if enabled {
		sl.consecutive = 0
		sl.autoOff = false
	}
	return true
}

// SetPaused stops or resumes Step.
func (e *Engine) SetPaused(paused bool) { e.paused = paused }

// Paused reports whether Step is currently a no-op.
func (e *Engine) Paused() bool { return e.paused }

// Frame returns the number of the last completed tick.
func (e *Engine) Frame() uint64 { return e.frame }

// RunID returns the identifier of the run this engine belongs to.
func (e *Engine) RunID() string { return e.runID }

// Seed returns the seed of the last Reset.
func (e *Engine) Seed() int64 { return e.seed }

// Config returns a copy of the active configuration.
func (e *Engine) Config() *config.Config {
	if e.cfg == nil {
		return nil
	}
	return e.cfg.Clone()
}

// Schema returns the active trait schema.
func (e *Engine) Schema() *genome.Schema { return e.schema }

// Window returns the most recently flushed telemetry window.
func (e *Engine) Window() (telemetry.WindowStats, bool) {
	if e.window == nil {
		return telemetry.WindowStats{}, false
	}
	return *e.window, true
}

// Perf returns rolling per-phase timing.
func (e *Engine) Perf() telemetry.PerfStats { return e.perf.Stats() }
