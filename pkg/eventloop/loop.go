package eventloop

// Loop executes tasks on behalf of the reactor.
// Implementations must be safe for concurrent use and must not drop tasks.
type Loop interface {
	Execute(task func())
}

// Func adapts an ordinary function to the Loop interface.
type Func func(task func())

// Execute calls f(task).
func (f Func) Execute(task func()) { f(task) }

// Inline runs tasks synchronously on the caller's goroutine.
// Inline is usable as a zero value.
type Inline struct{}

// Execute runs task immediately.
func (Inline) Execute(task func()) { task() }

// Compile-time interface satisfaction checks.
var (
	_ Loop = Func(nil)
	_ Loop = Inline{}
	_ Loop = (*Serial)(nil)
)
