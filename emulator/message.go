package emulator

// Message is a simulation lifecycle notification.
type Message int

const (
	MESSAGE_PROGRAM_LOADED         = Message(0) // A program was loaded and the datapath rebuilt.
	MESSAGE_SIMULATION_STARTED     = Message(1) // Run started.
	MESSAGE_SIMULATION_STOPPED     = Message(2) // Run was stopped before the program finished.
	MESSAGE_SIMULATION_INTERRUPTED = Message(3) // Run ended with an error.
	MESSAGE_SIMULATION_FINISHED    = Message(4) // The program exited or ran off its end.
	message_count                  = 5
)

var messageNames = [message_count]string{
	"program-loaded",
	"simulation-started",
	"simulation-stopped",
	"simulation-interrupted",
	"simulation-finished",
}

func (msg Message) String() string {
	if msg < 0 || msg >= message_count {
		return f("message(%d)", int(msg))
	}
	return messageNames[msg]
}
