package resource

import "fmt"

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind identifies the capability kind a resource was registered as.
type Kind uint8

const (
	KindInputStream Kind = iota + 1
	KindOutputStream
	KindDirectory
	KindFile
	KindPollable
	KindNetwork
	KindTCPSocket
	KindUDPSocket
	KindTerminalInput
	KindTerminalOutput
)

var kindNames = [...]string{
	KindInputStream:    "input-stream",
	KindOutputStream:   "output-stream",
	KindDirectory:      "directory",
	KindFile:           "file",
	KindPollable:       "pollable",
	KindNetwork:        "network",
	KindTCPSocket:      "tcp-socket",
	KindUDPSocket:      "udp-socket",
	KindTerminalInput:  "terminal-input",
	KindTerminalOutput: "terminal-output",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Resource is a host value that can be stored in a Table.
type Resource interface {
	ResourceKind() Kind
}

// Dropper is optionally implemented by resource values that need cleanup
// when the owning table is closed.
type Dropper interface {
	Drop()
}

// Entry describes a live table slot without exposing the resource.
type Entry struct {
	Handle Handle
	Kind   Kind
}

func (e Entry) String() string {
	return fmt.Sprintf("%d:%s", e.Handle, e.Kind)
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	// EventRemoved is emitted when ownership is handed back through Remove.
	EventRemoved
	// EventDropped is emitted when Close destroys a resource.
	EventDropped
)

// Event represents a resource lifecycle event.
type Event struct {
	Value  Resource
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }
