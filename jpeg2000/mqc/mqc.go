// Package mqc implements the MQ adaptive binary arithmetic coder.
//
// The MQ coder knows nothing about bit-planes, coefficients or passes; it
// codes single binary symbols against a caller-selected context and handles
// byte-stuffing and termination.
// Reference: ISO/IEC 15444-1:2019 Annex C
package mqc

// Decoder implements the MQ arithmetic decoder.
type Decoder struct {
	// Input data with a 0xFF 0xFF sentinel appended; the sentinel acts as
	// an artificial marker that stops the bytein routine at end of stream.
	data    []byte
	bp      int // current byte position (points to last read byte)
	dataLen int // original data length (without sentinel)

	a  uint32 // probability interval
	c  uint32 // code register
	ct int    // bit counter

	contexts []uint8 // context states (one per context)
}

func withSentinel(data []byte) []byte {
	out := make([]byte, len(data)+2)
	copy(out, data)
	out[len(data)] = 0xFF
	out[len(data)+1] = 0xFF
	return out
}

// NewDecoder creates an MQ decoder over data with numContexts contexts,
// all initialised to state 0 with MPS 0.
func NewDecoder(data []byte, numContexts int) *Decoder {
	d := &Decoder{
		data:     withSentinel(data),
		dataLen:  len(data),
		a:        0x8000,
		contexts: make([]uint8, numContexts),
	}
	d.init()
	return d
}

// NewRawDecoder creates a decoder that reads raw (bypass) bits only.
func NewRawDecoder(data []byte) *Decoder {
	return &Decoder{
		data:    withSentinel(data),
		dataLen: len(data),
	}
}

// init implements ISO 15444-1 C.3.5 (INITDEC).
func (d *Decoder) init() {
	if d.dataLen == 0 {
		d.c = 0xFF << 16
	} else {
		d.c = uint32(d.data[0]) << 16
	}
	d.bytein()
	d.c <<= 7
	d.ct -= 7
	d.a = 0x8000
}

// Decode decodes a single bit using the specified context. Hot path:
// table-driven, multiplication-free.
func (d *Decoder) Decode(contextID int) int {
	cx := &d.contexts[contextID]
	state := *cx & 0x7F
	mps := int(*cx >> 7)

	qe := qeTable[state]
	d.a -= qe

	var bit int
	if (d.c >> 16) < qe {
		// LPS exchange (ISO/IEC 15444-1 C.3.2)
		if d.a < qe {
			d.a = qe
			bit = mps
			*cx = nmpsTable[state] | (uint8(mps) << 7)
		} else {
			d.a = qe
			bit = 1 - mps
			newMPS := mps
			if switchTable[state] == 1 {
				newMPS = 1 - mps
			}
			*cx = nlpsTable[state] | (uint8(newMPS) << 7)
		}
		d.renormd()
	} else {
		d.c -= qe << 16
		if (d.a & 0x8000) != 0 {
			return mps
		}
		if d.a < qe {
			bit = 1 - mps
			newMPS := mps
			if switchTable[state] == 1 {
				newMPS = 1 - mps
			}
			*cx = nlpsTable[state] | (uint8(newMPS) << 7)
		} else {
			bit = mps
			*cx = nmpsTable[state] | (uint8(mps) << 7)
		}
		d.renormd()
	}
	return bit
}

// renormd renormalizes the decoder (probability interval doubling).
func (d *Decoder) renormd() {
	for d.a < 0x8000 {
		if d.ct == 0 {
			d.bytein()
		}
		d.a <<= 1
		d.c <<= 1
		d.ct--
	}
}

// bytein reads the next byte, undoing byte-stuffing: after a 0xFF byte only
// seven new bits are taken, and a 0xFF followed by a byte above 0x8F marks
// the end of the stream.
func (d *Decoder) bytein() {
	next := d.data[d.bp+1]
	if d.data[d.bp] == 0xFF {
		if next > 0x8F {
			d.c += 0xFF00
			d.ct = 8
		} else {
			d.bp++
			d.c += uint32(next) << 9
			d.ct = 7
		}
	} else {
		d.bp++
		d.c += uint32(next) << 8
		d.ct = 8
	}
}

// RawDecode reads a single bit in raw (bypass) mode.
func (d *Decoder) RawDecode() int {
	if d.ct == 0 {
		if d.c == 0xFF {
			next := d.data[d.bp]
			if next > 0x8F {
				d.c = 0xFF
				d.ct = 8
			} else {
				d.c = uint32(next)
				d.bp++
				d.ct = 7
			}
		} else {
			d.c = uint32(d.data[d.bp])
			d.bp++
			d.ct = 8
		}
	}
	d.ct--
	return int((d.c >> uint(d.ct)) & 0x01)
}

// ResetContexts returns every context to state 0 with MPS 0.
func (d *Decoder) ResetContexts() {
	for i := range d.contexts {
		d.contexts[i] = 0
	}
}

// GetContextState returns the packed state of a context.
func (d *Decoder) GetContextState(contextID int) uint8 {
	return d.contexts[contextID]
}

// SetContextState sets the packed state of a context.
func (d *Decoder) SetContextState(contextID int, state uint8) {
	d.contexts[contextID] = state
}

// MQ-coder state tables
// Reference: ISO/IEC 15444-1:2019 Table C.2

// qeTable - Qe values for each state
var qeTable = [47]uint32{
	0x5601, 0x3401, 0x1801, 0x0AC1, 0x0521, 0x0221, 0x5601, 0x5401,
	0x4801, 0x3801, 0x3001, 0x2401, 0x1C01, 0x1601, 0x5601, 0x5401,
	0x5101, 0x4801, 0x3801, 0x3401, 0x3001, 0x2801, 0x2401, 0x2201,
	0x1C01, 0x1801, 0x1601, 0x1401, 0x1201, 0x1101, 0x0AC1, 0x09C1,
	0x08A1, 0x0521, 0x0441, 0x02A1, 0x0221, 0x0141, 0x0111, 0x0085,
	0x0049, 0x0025, 0x0015, 0x0009, 0x0005, 0x0001, 0x5601,
}

// nmpsTable - next state after coding an MPS
var nmpsTable = [47]uint8{
	1, 2, 3, 4, 5, 38, 7, 8,
	9, 10, 11, 12, 13, 29, 15, 16,
	17, 18, 19, 20, 21, 22, 23, 24,
	25, 26, 27, 28, 29, 30, 31, 32,
	33, 34, 35, 36, 37, 38, 39, 40,
	41, 42, 43, 44, 45, 45, 46,
}

// nlpsTable - next state after coding an LPS
var nlpsTable = [47]uint8{
	1, 6, 9, 12, 29, 33, 6, 14,
	14, 14, 17, 18, 20, 21, 14, 14,
	15, 16, 17, 18, 19, 19, 20, 21,
	22, 23, 24, 25, 26, 27, 28, 29,
	30, 31, 32, 33, 34, 35, 36, 37,
	38, 39, 40, 41, 42, 43, 46,
}

// switchTable - MPS/LPS switch indicator
var switchTable = [47]uint8{
	1, 0, 0, 0, 0, 0, 1, 0,
	0, 0, 0, 0, 0, 0, 1, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0,
}
