package cluster

import (
	"sync"

	"github.com/google/uuid"

	"github.com/emberkv/raftcore/internal/raft"
)

// ChangeCallback is invoked on any membership change: join, leave, status
// change, type change, or a new leader being elected.
type ChangeCallback func()

// View is the cluster membership port this core consumes. Promote/Demote
// are asynchronous; the returned handle closes when the underlying
// control-plane action completes.
type View interface {
	Self() raft.MemberID
	IsLeader() bool
	Members() []Member
	IsMember(id raft.MemberID) bool
	OnChange(cb ChangeCallback)
	Promote(id raft.MemberID, newType MemberType) <-chan struct{}
	Demote(id raft.MemberID, newType MemberType) <-chan struct{}
}

// InMemoryView is a View backed by a plain map, suitable for tests and as
// the default wiring target. Promote/Demote complete synchronously but
// still return a channel per the port's async contract, so callers never
// special-case an in-memory implementation.
type InMemoryView struct {
	mu        sync.Mutex
	self      raft.MemberID
	leader    bool
	members   map[raft.MemberID]Member
	callbacks []ChangeCallback
}

// NewInMemoryView creates a View seeded with members, owned by self.
func NewInMemoryView(self raft.MemberID, members []Member) *InMemoryView {
	v := &InMemoryView{
		self:    self,
		members: make(map[raft.MemberID]Member, len(members)),
	}
	for _, m := range members {
		v.members[m.ID] = m
	}
	return v
}

func (v *InMemoryView) Self() raft.MemberID { return v.self }

// SetLeader marks whether this node currently believes itself to be
// leader; the rebalancer only runs when this is true.
func (v *InMemoryView) SetLeader(isLeader bool) {
	v.mu.Lock()
	v.leader = isLeader
	v.mu.Unlock()
	v.notify()
}

func (v *InMemoryView) IsLeader() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.leader
}

func (v *InMemoryView) Members() []Member {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Member, 0, len(v.members))
	for _, m := range v.members {
		out = append(out, m)
	}
	return out
}

func (v *InMemoryView) IsMember(id raft.MemberID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.members[id]
	return ok
}

func (v *InMemoryView) OnChange(cb ChangeCallback) {
	v.mu.Lock()
	v.callbacks = append(v.callbacks, cb)
	v.mu.Unlock()
}

// SetStatus updates a member's availability and fires change callbacks.
func (v *InMemoryView) SetStatus(id raft.MemberID, status MemberStatus) {
	v.mu.Lock()
	if m, ok := v.members[id]; ok {
		m.Status = status
		v.members[id] = m
	}
	v.mu.Unlock()
	v.notify()
}

// Join adds a new member and fires change callbacks.
func (v *InMemoryView) Join(m Member) {
	v.mu.Lock()
	v.members[m.ID] = m
	v.mu.Unlock()
	v.notify()
}

// Leave removes a member and fires change callbacks.
func (v *InMemoryView) Leave(id raft.MemberID) {
	v.mu.Lock()
	delete(v.members, id)
	v.mu.Unlock()
	v.notify()
}

func (v *InMemoryView) Promote(id raft.MemberID, newType MemberType) <-chan struct{} {
	return v.setType(id, newType)
}

func (v *InMemoryView) Demote(id raft.MemberID, newType MemberType) <-chan struct{} {
	return v.setType(id, newType)
}

func (v *InMemoryView) setType(id raft.MemberID, newType MemberType) <-chan struct{} {
	done := make(chan struct{})
	v.mu.Lock()
	if m, ok := v.members[id]; ok {
		m.Type = newType
		v.members[id] = m
	}
	v.mu.Unlock()
	// A uuid is minted per call, but this in-memory view finishes the
	// mutation inline and discards it: the id is neither stored nor
	// attached to the returned completion handle.
	_ = uuid.New()
	close(done)
	v.notify()
	return done
}

func (v *InMemoryView) notify() {
	v.mu.Lock()
	cbs := make([]ChangeCallback, len(v.callbacks))
	copy(cbs, v.callbacks)
	v.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}
