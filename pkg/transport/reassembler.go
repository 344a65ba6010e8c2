package transport

import "bytes"

var defaultDelimiter = []byte("\n")

// Reassembler turns arbitrarily split byte chunks into delimited events.
// The zero value splits on newlines.
type Reassembler struct {
	delim []byte
	buf   []byte
}

// NewReassembler returns a reassembler for the given delimiter. An empty
// delimiter means newline.
func NewReassembler(delim []byte) *Reassembler {
	if len(delim) == 0 {
		delim = defaultDelimiter
	}
	return &Reassembler{delim: bytes.Clone(delim)}
}

// Write buffers p and returns every event it completes, in order. Delimiters
// and trailing carriage returns are stripped and blank events dropped. The
// trailing partial event stays buffered. Returned slices are owned by the caller.
func (r *Reassembler) Write(p []byte) [][]byte {
	if len(r.delim) == 0 {
		r.delim = defaultDelimiter
	}

	r.buf = append(r.buf, p...)

	var events [][]byte
	for {
		i := bytes.Index(r.buf, r.delim)
		if i < 0 {
			break
		}

		if ev := clean(r.buf[:i]); ev != nil {
			events = append(events, ev)
		}
		r.buf = r.buf[i+len(r.delim):]
	}

	// Compact so a long stream does not pin the whole history.
	if len(r.buf) == 0 {
		r.buf = nil
	} else if cap(r.buf) > 4*len(r.buf)+4096 {
		r.buf = bytes.Clone(r.buf)
	}

	return events
}

// Flush returns the buffered residue as a final event, or nil when there is
// none, and empties the buffer.
func (r *Reassembler) Flush() []byte {
	ev := clean(r.buf)
	r.buf = nil
	return ev
}

// Buffered returns the number of bytes of the pending partial event.
func (r *Reassembler) Buffered() int { return len(r.buf) }

func clean(b []byte) []byte {
	b = bytes.TrimRight(b, "\r")
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	return bytes.Clone(b)
}
