package solver

import "github.com/stepanhen/yaga/lit"

// Dispatcher broadcasts solver lifecycle events to registered listeners.
// Listeners are held as plain references; the dispatcher owns nothing.
type Dispatcher struct {
	listeners []Listener
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Add registers a listener. Nil listeners are ignored.
func (d *Dispatcher) Add(l Listener) {
	if l != nil {
		d.listeners = append(d.listeners, l)
	}
}

// Remove unregisters a listener.
func (d *Dispatcher) Remove(l Listener) {
	for i, other := range d.listeners {
		if other == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// OnInit broadcasts the event to all listeners.
func (d *Dispatcher) OnInit(db *Database, trail *Trail) {
	for _, l := range d.listeners {
		l.OnInit(db, trail)
	}
}

// OnBeforeBacktrack broadcasts the event to all listeners.
func (d *Dispatcher) OnBeforeBacktrack(db *Database, trail *Trail, level int) {
	for _, l := range d.listeners {
		l.OnBeforeBacktrack(db, trail, level)
	}
}

// OnVariableResize broadcasts the event to all listeners.
func (d *Dispatcher) OnVariableResize(typ lit.Type, numVars int) {
	for _, l := range d.listeners {
		l.OnVariableResize(typ, numVars)
	}
}

// OnLearnedClause broadcasts the event to all listeners.
func (d *Dispatcher) OnLearnedClause(db *Database, trail *Trail, learned *Clause) {
	for _, l := range d.listeners {
		l.OnLearnedClause(db, trail, learned)
	}
}

// OnConflictResolved broadcasts the event to all listeners.
func (d *Dispatcher) OnConflictResolved(db *Database, trail *Trail, other *Clause) {
	for _, l := range d.listeners {
		l.OnConflictResolved(db, trail, other)
	}
}

// OnRestart broadcasts the event to all listeners.
func (d *Dispatcher) OnRestart(db *Database, trail *Trail) {
	for _, l := range d.listeners {
		l.OnRestart(db, trail)
	}
}
