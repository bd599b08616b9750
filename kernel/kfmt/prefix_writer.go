package kfmt

import "io"

// PrefixWriter wraps an io.Writer and injects Prefix at the beginning of each
// line written through it.
type PrefixWriter struct {
	Sink   io.Writer
	Prefix []byte

	midLine bool
}

// Write implements io.Writer. The injected prefixes are not included in the
// returned byte count.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) != 0 {
		if !w.midLine {
			if _, err := w.Sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		line := p
		for i, b := range p {
			if b == '\n' {
				line = p[:i+1]
				w.midLine = false
				break
			}
		}

		n, err := w.Sink.Write(line)
		written += n
		if err != nil {
			return written, err
		}
		p = p[len(line):]
	}

	return written, nil
}
