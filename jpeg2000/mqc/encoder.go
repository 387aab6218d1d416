package mqc

// Encoder implements the MQ arithmetic encoder.
// Reference: ISO/IEC 15444-1:2019 Annex C
type Encoder struct {
	// Output buffer; index 0 is a dummy carry target, the stream proper
	// starts at index 1. buffer[bp] is the pending byte that may still
	// receive a carry.
	buffer []byte
	start  int
	bp     int

	a  uint32 // probability interval
	c  uint32 // code register
	ct int    // bit counter

	contexts []uint8 // context states (one per context)
}

const bypassCtInit = 0xDEADBEEF

// NewEncoder creates an MQ encoder with numContexts contexts, all
// initialised to state 0 with MPS 0.
func NewEncoder(numContexts int) *Encoder {
	return &Encoder{
		buffer:   make([]byte, 1, 1024),
		start:    1,
		a:        0x8000,
		ct:       12,
		contexts: make([]uint8, numContexts),
	}
}

// Encode encodes a single bit using the specified context.
func (e *Encoder) Encode(bit int, contextID int) {
	cx := &e.contexts[contextID]
	state := *cx & 0x7F
	mps := int(*cx >> 7)

	qe := qeTable[state]

	if bit == mps {
		e.a -= qe
		if (e.a & 0x8000) == 0 {
			// Conditional exchange, then renormalize.
			if e.a < qe {
				e.a = qe
			} else {
				e.c += qe
			}
			*cx = nmpsTable[state] | (uint8(mps) << 7)
			e.renorme()
		} else {
			e.c += qe
		}
	} else {
		e.a -= qe
		if e.a < qe {
			e.c += qe
		} else {
			e.a = qe
		}
		newMPS := mps
		if switchTable[state] == 1 {
			newMPS = 1 - mps
		}
		*cx = nlpsTable[state] | (uint8(newMPS) << 7)
		e.renorme()
	}
}

// renorme renormalizes the encoder (probability interval doubling).
func (e *Encoder) renorme() {
	for e.a < 0x8000 {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteout()
		}
	}
}

// byteout outputs a byte with carry propagation and byte-stuffing: after a
// 0xFF byte the next byte carries only seven bits.
func (e *Encoder) byteout() {
	if e.bp >= len(e.buffer) {
		e.ensureIndex(e.bp)
	}

	if e.buffer[e.bp] == 0xFF {
		e.bp++
		e.ensureIndex(e.bp)
		e.buffer[e.bp] = byte(e.c >> 20)
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}

	if (e.c & 0x8000000) == 0 {
		e.bp++
		e.ensureIndex(e.bp)
		e.buffer[e.bp] = byte(e.c >> 19)
		e.c &= 0x7FFFF
		e.ct = 8
		return
	}

	e.buffer[e.bp]++
	if e.buffer[e.bp] == 0xFF {
		e.c &= 0x7FFFFFF
		e.bp++
		e.ensureIndex(e.bp)
		e.buffer[e.bp] = byte(e.c >> 20)
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}

	e.bp++
	e.ensureIndex(e.bp)
	e.buffer[e.bp] = byte(e.c >> 19)
	e.c &= 0x7FFFF
	e.ct = 8
}

// setbits fills the remaining code-register bits with ones ahead of a
// flush (ISO 15444-1 C.2.9).
func (e *Encoder) setbits() {
	tempC := e.c + e.a
	e.c |= 0xFFFF
	if e.c >= tempC {
		e.c -= 0x8000
	}
}

// Flush terminates the stream with the minimal flush and returns the
// encoded bytes. The coder must not be used after flushing.
func (e *Encoder) Flush() []byte {
	e.setbits()
	e.c <<= uint(e.ct)
	e.byteout()
	e.c <<= uint(e.ct)
	e.byteout()

	// A coding pass must not end with 0xFF.
	if e.buffer[e.bp] != 0xFF {
		e.bp++
	}
	return e.Bytes()
}

// ErtermFlush performs the padded, predictable termination flush (ERTERM)
// and returns the encoded bytes. The resulting segment is byte-aligned and
// independently decodable.
func (e *Encoder) ErtermFlush() []byte {
	k := 11 - e.ct + 1
	for k > 0 {
		e.c <<= uint(e.ct)
		e.ct = 0
		e.byteout()
		k -= e.ct
	}
	if e.buffer[e.bp] != 0xFF {
		e.byteout()
	}
	return e.Bytes()
}

// Bytes returns the bytes emitted so far.
func (e *Encoder) Bytes() []byte {
	if e.bp < e.start {
		return []byte{}
	}
	return e.buffer[e.start:e.bp]
}

// NumBytes returns the number of bytes emitted so far.
func (e *Encoder) NumBytes() int {
	if e.bp < e.start {
		return 0
	}
	return e.bp - e.start
}

// BypassInit byte-aligns the stream and prepares for raw (bypass)
// emission. Raw bytes are written at bp directly, so bp moves off the
// dummy carry slot onto the first unwritten stream position.
func (e *Encoder) BypassInit() {
	e.c = 0
	e.ct = bypassCtInit
	if e.bp < e.start {
		e.bp = e.start
	}
}

// BypassEncode appends a bit in raw (bypass) mode, with byte-stuffing
// after 0xFF bytes.
func (e *Encoder) BypassEncode(bit int) {
	if e.ct == bypassCtInit {
		e.ct = 8
	}
	e.ct--
	e.c += uint32(bit) << uint(e.ct)
	if e.ct == 0 {
		e.ensureIndex(e.bp)
		e.buffer[e.bp] = byte(e.c)
		e.ct = 8
		if e.buffer[e.bp] == 0xFF {
			e.ct = 7
		}
		e.bp++
		e.c = 0
	}
}

// BypassFlush terminates raw emission, padding the final partial byte with
// an alternating bit pattern, and returns the encoded bytes.
func (e *Encoder) BypassFlush() []byte {
	if e.ct != bypassCtInit && e.ct < 8 {
		bit := 0
		for e.ct > 0 {
			e.ct--
			e.c += uint32(bit) << uint(e.ct)
			bit = 1 - bit
		}
		e.ensureIndex(e.bp)
		e.buffer[e.bp] = byte(e.c)
		e.bp++
		e.c = 0
	}
	return e.Bytes()
}

// ResetContexts returns every context to state 0 with MPS 0.
func (e *Encoder) ResetContexts() {
	for i := range e.contexts {
		e.contexts[i] = 0
	}
}

// GetContextState returns the packed state of a context.
func (e *Encoder) GetContextState(contextID int) uint8 {
	return e.contexts[contextID]
}

// SetContextState sets the packed state of a context.
func (e *Encoder) SetContextState(contextID int, state uint8) {
	e.contexts[contextID] = state
}

func (e *Encoder) ensureIndex(idx int) {
	if idx < len(e.buffer) {
		return
	}
	needed := idx + 1
	if needed <= cap(e.buffer) {
		e.buffer = e.buffer[:needed]
		return
	}
	newCap := cap(e.buffer) * 2
	if newCap < needed {
		newCap = needed
	}
	newBuf := make([]byte, needed, newCap)
	copy(newBuf, e.buffer)
	e.buffer = newBuf
}
