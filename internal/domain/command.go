package domain

// CommandType classifies a control request for the brew session.
type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandStart
	CommandPause
	CommandReset
	CommandStatus
	CommandQuit
)

// String returns a human-readable command type.
func (c CommandType) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandPause:
		return "pause"
	case CommandReset:
		return "reset"
	case CommandStatus:
		return "status"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command is a parsed control request, typed or spoken.
type Command struct {
	Type CommandType
	Raw  string
}
