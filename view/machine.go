package view

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Mode is the screen a session is looking at. Exactly one is active.
type Mode string

const (
	ModeHome      Mode = "home"
	ModeUpload    Mode = "upload"
	ModeAnalyzing Mode = "analyzing"
	ModeDashboard Mode = "dashboard"
	ModeLibrary   Mode = "library"
)

func sid(m Mode) statekit.StateID {
	return statekit.StateID(m)
}

// Events accepted by the machine
const (
	EventGoHome           = "go_home"
	EventOpenUpload       = "open_upload"
	EventOpenLibrary      = "open_library"
	EventUploaded         = "uploaded"
	EventAnalysisComplete = "analysis_complete"
	EventContractLoaded   = "contract_loaded"
)

// MachineContext lets guards look at session data without the machine owning it
type MachineContext struct {
	HasAnalysis func() bool
}

// Machine routes a session between screens
type Machine struct {
	interpreter *statekit.Interpreter[MachineContext]
}

// NewMachine starts a machine on the home screen. hasAnalysis gates entry to
// the dashboard; nil means the dashboard is always reachable.
func NewMachine(hasAnalysis func() bool) (*Machine, error) {
	if hasAnalysis == nil {
		hasAnalysis = func() bool { return true }
	}

	builder := statekit.NewMachine[MachineContext]("view-machine").
		WithInitial(sid(ModeHome)).
		WithContext(MachineContext{HasAnalysis: hasAnalysis}).
		WithGuard("hasAnalysis", func(ctx MachineContext, e statekit.Event) bool {
			return ctx.HasAnalysis()
		})

	builder.State(sid(ModeHome)).
		On(EventOpenUpload).Target(sid(ModeUpload)).
		On(EventOpenLibrary).Target(sid(ModeLibrary)).
		Done()

	builder.State(sid(ModeUpload)).
		On(EventUploaded).Target(sid(ModeAnalyzing)).
		On(EventGoHome).Target(sid(ModeHome)).
		On(EventOpenLibrary).Target(sid(ModeLibrary)).
		Done()

	builder.State(sid(ModeAnalyzing)).
		On(EventAnalysisComplete).Target(sid(ModeDashboard)).Guard("hasAnalysis").
		On(EventGoHome).Target(sid(ModeHome)).
		Done()

	builder.State(sid(ModeDashboard)).
		On(EventGoHome).Target(sid(ModeHome)).
		On(EventOpenLibrary).Target(sid(ModeLibrary)).
		Done()

	builder.State(sid(ModeLibrary)).
		On(EventOpenUpload).Target(sid(ModeUpload)).
		On(EventContractLoaded).Target(sid(ModeDashboard)).Guard("hasAnalysis").
		On(EventGoHome).Target(sid(ModeHome)).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build view machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &Machine{interpreter: interpreter}, nil
}

// Send applies event. Staying on the same screen is an error except for
// go_home on the home screen, which is a no-op.
func (m *Machine) Send(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := m.Current()

	if before != after {
		return nil
	}
	if event == EventGoHome && before == ModeHome {
		return nil
	}
	return fmt.Errorf("event %q is not allowed on the %s screen", event, before)
}

func (m *Machine) Current() Mode {
	return Mode(m.interpreter.State().Value)
}

// Navigation targets exposed in the page header
var navEvents = map[string]string{
	string(ModeHome):    EventGoHome,
	string(ModeUpload):  EventOpenUpload,
	string(ModeLibrary): EventOpenLibrary,
}

// NavEvent maps a navigation target to its event
func NavEvent(target string) (string, bool) {
	ev, ok := navEvents[target]
	return ev, ok
}
