package timing

import "github.com/sarchlab/tbsync/sim/hooking"

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() VTimeInStep
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	Schedule(e Event)
}

// A SimulationEndHandler is a handler that is called after the simulation ends.
type SimulationEndHandler interface {
	Handle(now VTimeInStep)
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Run will process all the events until the simulation finishes or Stop
	// is called.
	Run() error

	// RunUntil processes the events up to and including the deadline and then
	// advances the current time to the deadline.
	RunUntil(deadline VTimeInStep) error

	// Stop makes a running Run or RunUntil return after the current event.
	Stop()

	// Pause will pause the simulation until continue is called.
	Pause()

	// Continue will continue the paused simulation
	Continue()

	// RegisterSimulationEndHandler registers a handler that perform some
	// actions after the simulation is finished.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all the registered SimulationEndHandler
	Finished()
}
