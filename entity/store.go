package entity

import (
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/genesis/components"
)

type record struct {
	entity ecs.Entity
	kind   components.Kind
}

// Store is the ordered collection of live entities.
// Components live in an ark world; iteration follows ascending ID.
type Store struct {
	world *ecs.World

	mapper  *ecs.Map2[components.Identity, components.Position]
	idMap   *ecs.Map1[components.Identity]
	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	enMap   *ecs.Map1[components.Energy]
	vitMap  *ecs.Map1[components.Vitals]
	heirMap *ecs.Map1[components.Heritage]

	records map[ID]record
	order   []ID
	counts  [4]int
	nextID  ID
}

// NewStore creates an empty store.
func NewStore() *Store {
	world := ecs.NewWorld()
	return &Store{
		world:   world,
		mapper:  ecs.NewMap2[components.Identity, components.Position](world),
		idMap:   ecs.NewMap1[components.Identity](world),
		posMap:  ecs.NewMap1[components.Position](world),
		velMap:  ecs.NewMap1[components.Velocity](world),
		enMap:   ecs.NewMap1[components.Energy](world),
		vitMap:  ecs.NewMap1[components.Vitals](world),
		heirMap: ecs.NewMap1[components.Heritage](world),
		records: make(map[ID]record),
		nextID:  1,
	}
}

// Allocate reserves the next entity ID.
func (s *Store) Allocate() ID {
	id := s.nextID
	s.nextID++
	return id
}

// NextID returns the ID the next Allocate call will return.
func (s *Store) NextID() ID { return s.nextID }

// SetNextID moves the allocator forward. It never moves it backwards.
func (s *Store) SetNextID(id ID) {
	if id > s.nextID {
		s.nextID = id
	}
}

// Insert adds p to the store. A zero p.ID is allocated; an ID already present
// is refused. It returns the inserted ID and whether insertion happened.
func (s *Store) Insert(p Prototype, frame uint64) (ID, bool) {
	if !p.Kind.Valid() {
		return 0, false
	}
	if p.ID == 0 {
		p.ID = s.Allocate()
	}
	if _, exists := s.records[p.ID]; exists {
		return p.ID, false
	}
	s.SetNextID(p.ID + 1)

	ident := components.Identity{ID: p.ID, Kind: p.Kind, Born: frame}
	pos := p.Position
	e := s.mapper.NewEntity(&ident, &pos)

	switch p.Kind {
	case components.KindAgent:
		vel := p.Velocity
		en := p.Energy
		vit := p.Vitals
		heir := components.Heritage{
			Genome:     p.Genome.Clone(),
			Generation: p.Generation,
			ParentA:    p.ParentA,
			ParentB:    p.ParentB,
		}
		s.velMap.Add(e, &vel)
		s.enMap.Add(e, &en)
		s.vitMap.Add(e, &vit)
		s.heirMap.Add(e, &heir)
	case components.KindResource, components.KindConsumable:
		en := p.Energy
		s.enMap.Add(e, &en)
	}

	s.records[p.ID] = record{entity: e, kind: p.Kind}
	if n := len(s.order); n == 0 || s.order[n-1] < p.ID {
		s.order = append(s.order, p.ID)
	} else {
		i, _ := slices.BinarySearch(s.order, p.ID)
		s.order = slices.Insert(s.order, i, p.ID)
	}
	s.counts[p.Kind]++
	return p.ID, true
}

// Delete removes the entity. It reports whether it existed.
func (s *Store) Delete(id ID) bool {
	rec, ok := s.records[id]
	if !ok {
		return false
	}
	s.world.RemoveEntity(rec.entity)
	delete(s.records, id)
	if i, found := slices.BinarySearch(s.order, id); found {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.counts[rec.kind]--
	return true
}

// Has reports whether id is live.
func (s *Store) Has(id ID) bool {
	_, ok := s.records[id]
	return ok
}

// Len returns the number of live entities.
func (s *Store) Len() int { return len(s.order) }

// Count returns the number of live entities of kind k.
func (s *Store) Count(k components.Kind) int {
	if !k.Valid() {
		return 0
	}
	return s.counts[k]
}

// Kind returns the kind of id.
func (s *Store) Kind(id ID) (components.Kind, bool) {
	rec, ok := s.records[id]
	return rec.kind, ok
}

// IDs returns the live IDs matching mask in ascending order.
// The slice is a copy and stays valid across commits.
func (s *Store) IDs(mask components.KindMask) []ID {
	out := make([]ID, 0, len(s.order))
	for _, id := range s.order {
		if mask.Has(s.records[id].kind) {
			out = append(out, id)
		}
	}
	return out
}

// Component accessors return nil when id is not live or lacks the component.
// Returned pointers are valid until the next structural change.

func (s *Store) Identity(id ID) *components.Identity {
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	return s.idMap.Get(rec.entity)
}

func (s *Store) Position(id ID) *components.Position {
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	return s.posMap.Get(rec.entity)
}

func (s *Store) Velocity(id ID) *components.Velocity {
	rec, ok := s.records[id]
	if !ok || !rec.kind.Mobile() {
		return nil
	}
	return s.velMap.Get(rec.entity)
}

func (s *Store) Energy(id ID) *components.Energy {
	rec, ok := s.records[id]
	if !ok || rec.kind == components.KindDecoration {
		return nil
	}
	return s.enMap.Get(rec.entity)
}

func (s *Store) Vitals(id ID) *components.Vitals {
	rec, ok := s.records[id]
	if !ok || rec.kind != components.KindAgent {
		return nil
	}
	return s.vitMap.Get(rec.entity)
}

func (s *Store) Heritage(id ID) *components.Heritage {
	rec, ok := s.records[id]
	if !ok || rec.kind != components.KindAgent {
		return nil
	}
	return s.heirMap.Get(rec.entity)
}

// Prototype reconstructs an insertable description of a live entity.
func (s *Store) Prototype(id ID) (Prototype, bool) {
	rec, ok := s.records[id]
	if !ok {
		return Prototype{}, false
	}
	p := Prototype{ID: id, Kind: rec.kind, Position: *s.posMap.Get(rec.entity)}
	if v := s.Velocity(id); v != nil {
		p.Velocity = *v
	}
	if en := s.Energy(id); en != nil {
		p.Energy = *en
	}
	if vit := s.Vitals(id); vit != nil {
		p.Vitals = *vit
	}
	if h := s.Heritage(id); h != nil {
		p.Genome = h.Genome.Clone()
		p.Generation = h.Generation
		p.ParentA = h.ParentA
		p.ParentB = h.ParentB
	}
	return p, true
}
