package kernel

// ErrorKind classifies a kernel error. Syscalls collapse every kind into the
// same -1 return value; the kind is kept so callers inside the kernel (and
// tests) can tell failures apart.
type ErrorKind uint8

const (
	// KindInternal marks errors that do not belong to the syscall taxonomy.
	KindInternal ErrorKind = iota

	// ResourceExhausted is reported when no process slot or descriptor is free.
	ResourceExhausted

	// NotFound is reported when a program or file name cannot be resolved.
	NotFound

	// InvalidFormat is reported when an executable image fails validation.
	InvalidFormat

	// InvalidArgument is reported for bad descriptors, buffers or lengths.
	InvalidArgument

	// PermissionDenied is reported when closing a standard stream.
	PermissionDenied
)

// String returns the name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ResourceExhausted:
		return "resource exhausted"
	case NotFound:
		return "not found"
	case InvalidFormat:
		return "invalid format"
	case InvalidArgument:
		return "invalid argument"
	case PermissionDenied:
		return "permission denied"
	default:
		return "internal"
	}
}

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure so they can be compared
// by identity.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string

	// Kind classifies the error.
	Kind ErrorKind
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
