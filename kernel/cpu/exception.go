package cpu

// Exception identifies a processor exception vector.
type Exception uint8

const (
	DivideError            = Exception(0)
	Debug                  = Exception(1)
	NMI                    = Exception(2)
	Breakpoint             = Exception(3)
	Overflow               = Exception(4)
	BoundRangeExceeded     = Exception(5)
	InvalidOpcode          = Exception(6)
	DeviceNotAvailable     = Exception(7)
	DoubleFault            = Exception(8)
	InvalidTSS             = Exception(10)
	SegmentNotPresent      = Exception(11)
	StackSegmentFault      = Exception(12)
	GeneralProtectionFault = Exception(13)
	PageFault              = Exception(14)
	FPUError               = Exception(16)
	AlignmentCheck         = Exception(17)
	MachineCheck           = Exception(18)
	SIMDError              = Exception(19)

	numExceptions = 20
)

var exceptionNames = [numExceptions]string{
	DivideError:            "divide error",
	Debug:                  "debug",
	NMI:                    "non-maskable interrupt",
	Breakpoint:             "breakpoint",
	Overflow:               "overflow",
	BoundRangeExceeded:     "bound range exceeded",
	InvalidOpcode:          "invalid opcode",
	DeviceNotAvailable:     "device not available",
	DoubleFault:            "double fault",
	9:                      "coprocessor segment overrun",
	InvalidTSS:             "invalid TSS",
	SegmentNotPresent:      "segment not present",
	StackSegmentFault:      "stack-segment fault",
	GeneralProtectionFault: "general protection fault",
	PageFault:              "page fault",
	15:                     "reserved",
	FPUError:               "x87 FPU error",
	AlignmentCheck:         "alignment check",
	MachineCheck:           "machine check",
	SIMDError:              "SIMD floating-point exception",
}

// String returns the name of the exception.
func (e Exception) String() string {
	if int(e) < len(exceptionNames) {
		return exceptionNames[e]
	}
	return "unknown exception"
}

// ExceptionHandler handles an exception raised by user-mode code.
type ExceptionHandler func(e Exception, u *UserContext)

// HandleException installs the handler for an exception vector.
func (c *CPU) HandleException(e Exception, handler ExceptionHandler) {
	if int(e) < len(c.excHandlers) {
		c.excHandlers[e] = handler
	}
}
