package entity

// OpKind is the structural operation carried by an Op.
type OpKind uint8

const (
	OpSpawn OpKind = iota
	OpRemove
)

func (k OpKind) String() string {
	if k == OpSpawn {
		return "spawn"
	}
	return "remove"
}

// Op is one deferred mutation request.
type Op struct {
	ID        ID
	Kind      OpKind
	Reason    string
	Meta      map[string]string
	Prototype Prototype // spawns only
}

type opKey struct {
	id ID
	op OpKind
}

type journalKind uint8

const (
	journalAppend journalKind = iota
	journalCancel
)

type journalEntry struct {
	kind journalKind
	idx  int
}

// Queue is an op-log of pending spawns and removals, drained only by the
// engine at commit points. At most one op per (ID, kind) is pending.
//
// A removal that arrives while a spawn for the same ID is pending cancels
// both; the ID cannot be spawned again until the next spawn drain.
type Queue struct {
	log       []Op
	dead      []bool
	index     map[opKey]int
	cancelled map[ID]struct{}
	live      int
	journal   []journalEntry
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		index:     make(map[opKey]int),
		cancelled: make(map[ID]struct{}),
	}
}

// RequestSpawn queues p for insertion. p.ID must be allocated.
// It returns false for a zero ID, a duplicate, or a cancelled ID.
func (q *Queue) RequestSpawn(p Prototype, reason string, meta map[string]string) bool {
	if p.ID == 0 {
		return false
	}
	k := opKey{p.ID, OpSpawn}
	if _, dup := q.index[k]; dup {
		return false
	}
	if _, gone := q.cancelled[p.ID]; gone {
		return false
	}
	q.append(Op{ID: p.ID, Kind: OpSpawn, Reason: reason, Meta: meta, Prototype: p})
	return true
}

// RequestRemove queues id for removal, or cancels a pending spawn of id.
func (q *Queue) RequestRemove(id ID, reason string, meta map[string]string) bool {
	if id == 0 {
		return false
	}
	if _, dup := q.index[opKey{id, OpRemove}]; dup {
		return false
	}
	if _, gone := q.cancelled[id]; gone {
		return false
	}
	if idx, ok := q.index[opKey{id, OpSpawn}]; ok {
		q.dead[idx] = true
		delete(q.index, opKey{id, OpSpawn})
		q.cancelled[id] = struct{}{}
		q.live--
		q.journal = append(q.journal, journalEntry{kind: journalCancel, idx: idx})
		return true
	}
	q.append(Op{ID: id, Kind: OpRemove, Reason: reason, Meta: meta})
	return true
}

func (q *Queue) append(op Op) {
	idx := len(q.log)
	q.log = append(q.log, op)
	q.dead = append(q.dead, false)
	q.index[opKey{op.ID, op.Kind}] = idx
	q.live++
	q.journal = append(q.journal, journalEntry{kind: journalAppend, idx: idx})
}

// DrainSpawns returns pending spawns in request order and drops them.
// Cancelled IDs become spawnable again.
func (q *Queue) DrainSpawns() []Op {
	out := q.drain(OpSpawn)
	clear(q.cancelled)
	return out
}

// DrainRemovals returns pending removals in request order and drops them.
func (q *Queue) DrainRemovals() []Op {
	return q.drain(OpRemove)
}

func (q *Queue) drain(kind OpKind) []Op {
	var out []Op
	keepLog := q.log[:0]
	keepDead := q.dead[:0]
	clear(q.index)
	for i, op := range q.log {
		if q.dead[i] {
			continue
		}
		if op.Kind == kind {
			out = append(out, op)
			q.live--
			continue
		}
		q.index[opKey{op.ID, op.Kind}] = len(keepLog)
		keepLog = append(keepLog, op)
		keepDead = append(keepDead, false)
	}
	// Zero the tail so dropped prototypes can be collected.
	for i := len(keepLog); i < len(q.log); i++ {
		q.log[i] = Op{}
	}
	q.log = keepLog
	q.dead = keepDead
	q.journal = q.journal[:0]
	return out
}

// IsPendingRemoval reports whether a removal of id is queued.
func (q *Queue) IsPendingRemoval(id ID) bool {
	_, ok := q.index[opKey{id, OpRemove}]
	return ok
}

// IsPendingSpawn reports whether a spawn of id is queued.
func (q *Queue) IsPendingSpawn(id ID) bool {
	_, ok := q.index[opKey{id, OpSpawn}]
	return ok
}

// Pending returns the number of live ops for id.
func (q *Queue) Pending(id ID) int {
	n := 0
	if q.IsPendingSpawn(id) {
		n++
	}
	if q.IsPendingRemoval(id) {
		n++
	}
	return n
}

// Len returns the number of live ops.
func (q *Queue) Len() int { return q.live }

// Mark returns a position that Rollback can return to.
// Marks are invalidated by a drain.
func (q *Queue) Mark() int { return len(q.journal) }

// Rollback undoes every request made since mark.
func (q *Queue) Rollback(mark int) {
	if mark < 0 {
		mark = 0
	}
	for len(q.journal) > mark {
		j := q.journal[len(q.journal)-1]
		q.journal = q.journal[:len(q.journal)-1]
		switch j.kind {
		case journalAppend:
			op := q.log[j.idx]
			delete(q.index, opKey{op.ID, op.Kind})
			q.log[j.idx] = Op{}
			q.log = q.log[:j.idx]
			q.dead = q.dead[:j.idx]
			q.live--
		case journalCancel:
			op := q.log[j.idx]
			q.dead[j.idx] = false
			q.index[opKey{op.ID, OpSpawn}] = j.idx
			delete(q.cancelled, op.ID)
			q.live++
		}
	}
}

// Reset drops everything.
func (q *Queue) Reset() {
	clear(q.log)
	q.log = q.log[:0]
	q.dead = q.dead[:0]
	q.journal = q.journal[:0]
	q.live = 0
	clear(q.index)
	clear(q.cancelled)
}
