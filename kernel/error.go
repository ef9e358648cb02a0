package kernel

// Error describes an error reported by one of the kernel subsystems. Kernel
// errors are always defined as global variables pointing to an Error value;
// the Go allocator is not available this early in the boot sequence so
// helpers like errors.New cannot be used.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
