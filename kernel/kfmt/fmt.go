// Package kfmt implements the kernel's formatted output. Messages printed
// before an output sink is attached are kept in a ring buffer and replayed
// once a sink becomes available.
package kfmt

import (
	"fmt"
	"io"
)

var (
	// earlyPrintBuffer stores Printf output until the terminals are up.
	earlyPrintBuffer ringBuffer

	// outputSink receives the output of Printf. If nil, output goes to
	// earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and flushes
// any data accumulated in the early print buffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// Printf formats according to format and writes to the current output sink.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes to w. A nil w selects the early
// print buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	if w == nil {
		w = &earlyPrintBuffer
	}
	fmt.Fprintf(w, format, args...)
}

// GetOutputSink returns a writer that forwards to the output sink in effect
// at the time of each write, so it can be captured before the terminals are
// up.
func GetOutputSink() io.Writer {
	return sinkWriter{}
}

type sinkWriter struct{}

func (sinkWriter) Write(p []byte) (int, error) {
	if outputSink == nil {
		return earlyPrintBuffer.Write(p)
	}
	return outputSink.Write(p)
}
