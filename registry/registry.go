// Package registry keeps the set of live widgets that coordinate with each
// other, and the token of the shared cycle they may be running.
package registry

import (
	"errors"
	"sync"

	"github.com/rs/xid"
	"github.com/sarchlab/telepanel/timing"
)

// ErrCycleInFlight is returned when a cycle is requested while another one
// has not been consumed yet.
var ErrCycleInFlight = errors.New("a cycle is already in flight")

// A Member is a widget taking part in coordination.
type Member interface {
	Name() string
}

// A CycleToken identifies the member that initiated the shared cycle.
type CycleToken struct {
	ID        string
	Initiator Member
	Started   timing.VTimeInSec
}

// Registry is the set of live members. It is safe for concurrent use.
type Registry struct {
	lock    sync.Mutex
	members []Member
	token   *CycleToken
	cycles  uint64
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Join adds a member. Joining twice has no effect.
func (r *Registry) Join(m Member) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, existing := range r.members {
		if existing == m {
			return
		}
	}

	r.members = append(r.members, m)
}

// Leave removes a member. A cycle the member initiated keeps running.
func (r *Registry) Leave(m Member) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for i, existing := range r.members {
		if existing == m {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

// Members returns the live members in joining order.
func (r *Registry) Members() []Member {
	r.lock.Lock()
	defer r.lock.Unlock()

	out := make([]Member, len(r.members))
	copy(out, r.members)

	return out
}

// Len returns the number of live members.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.members)
}

// BeginCycle creates the token of a new cycle initiated by m.
func (r *Registry) BeginCycle(
	m Member,
	now timing.VTimeInSec,
) (*CycleToken, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.token != nil {
		return nil, ErrCycleInFlight
	}

	r.token = &CycleToken{
		ID:        xid.New().String(),
		Initiator: m,
		Started:   now,
	}

	return r.token, nil
}

// EndCycle consumes the token. It returns false if the token is not the one
// in flight.
func (r *Registry) EndCycle(token *CycleToken) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if token == nil || r.token != token {
		return false
	}

	r.token = nil
	r.cycles++

	return true
}

// InFlight returns the token of the running cycle, or nil.
func (r *Registry) InFlight() *CycleToken {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.token
}

// Cycles returns the number of completed cycles.
func (r *Registry) Cycles() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.cycles
}
