package osc

import (
	"encoding/binary"
	"fmt"
	"math"
)

const bundleTag = "#bundle"

// DecodeOption configures a Decode call.
type DecodeOption func(*decoder)

// WithTrace attaches a Trace that Decode appends diagnostic lines to,
// regardless of whether decoding succeeds.
func WithTrace(t *Trace) DecodeOption {
	return func(d *decoder) { d.trace = t }
}

// decoder is the small piece of state threaded through the recursive
// descent: the remaining, not-yet-consumed bytes, and an optional trace
// builder. It never owns buf beyond the lifetime of a single Decode call;
// every value decoded out of it is copied.
type decoder struct {
	buf   []byte
	trace *Trace
}

// Decode parses a single UDP datagram payload into an Element tree. The
// returned Element is either a *Message or a *Bundle; any other result
// means the packet was rejected before that point. Decode never returns a
// partially constructed tree: on error the Element is nil.
func Decode(data []byte, opts ...DecodeOption) (Element, error) {
	d := &decoder{buf: data}
	for _, opt := range opts {
		opt(d)
	}

	if len(d.buf) == 0 {
		d.trace.note("empty input")
		return nil, ErrInputEmpty
	}

	el, err := d.decodeElement()
	if err != nil {
		d.trace.note("decode failed: %v", err)
		return nil, err
	}
	return el, nil
}

// decodeElement decodes one OSC packet (message or bundle) from the front
// of d.buf, consuming exactly the bytes that belong to it.
func (d *decoder) decodeElement() (Element, error) {
	lead, err := d.readString()
	if err != nil {
		return nil, fmt.Errorf("reading address/bundle tag: %w", err)
	}

	if lead == bundleTag {
		d.trace.enter("bundle")
		return d.decodeBundleBody()
	}

	if len(lead) == 0 || lead[0] != '/' {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAddress, lead)
	}

	d.trace.enter("message " + lead)
	return d.decodeMessageBody(lead)
}

func (d *decoder) decodeMessageBody(address string) (*Message, error) {
	msg := &Message{Address: address}

	if len(d.buf) == 0 {
		return msg, nil
	}

	tags, err := d.readString()
	if err != nil {
		return nil, fmt.Errorf("reading type tags: %w", err)
	}
	if len(tags) == 0 || tags[0] != ',' {
		return nil, fmt.Errorf("%w: %q", ErrMalformedTypeTags, tags)
	}

	for _, tag := range []byte(tags[1:]) {
		arg, err := d.decodeArgument(tag)
		if err != nil {
			return nil, fmt.Errorf("message %q: argument %c: %w", address, tag, err)
		}
		msg.Arguments = append(msg.Arguments, arg)
	}

	return msg, nil
}

func (d *decoder) decodeArgument(tag byte) (Element, error) {
	switch tag {
	case 'i':
		v, err := d.readInt32()
		return Int32(v), err
	case 'f':
		v, err := d.readFloat32()
		return Float32(v), err
	case 's':
		v, err := d.readString()
		return String(v), err
	case 'b':
		v, err := d.readBlob()
		return Blob(v), err
	default:
		return nil, UnknownTypeTagError{Tag: tag}
	}
}

func (d *decoder) decodeBundleBody() (*Bundle, error) {
	tt, err := d.readTimetag()
	if err != nil {
		return nil, fmt.Errorf("reading bundle timetag: %w", err)
	}

	bundle := &Bundle{Time: tt}

	for len(d.buf) > 0 {
		size, err := d.readInt32()
		if err != nil {
			return nil, fmt.Errorf("reading bundle element size: %w", err)
		}
		if size < 0 || int(size) > len(d.buf) {
			return nil, fmt.Errorf("%w: declared %d, have %d", ErrOversizedElement, size, len(d.buf))
		}

		sub := &decoder{buf: d.buf[:size], trace: d.trace}
		el, err := sub.decodeElement()
		if err != nil {
			return nil, fmt.Errorf("reading bundle element: %w", err)
		}
		bundle.Elements = append(bundle.Elements, el)

		d.buf = d.buf[size:]
	}

	return bundle, nil
}

////
// Primitive readers. Each consumes a prefix of d.buf and advances it.
////

func (d *decoder) readInt32() (int32, error) {
	if len(d.buf) < 4 {
		return 0, ErrTruncated
	}
	v := int32(binary.BigEndian.Uint32(d.buf[:4]))
	d.buf = d.buf[4:]
	return v, nil
}

func (d *decoder) readFloat32() (float32, error) {
	if len(d.buf) < 4 {
		return 0, ErrTruncated
	}
	v := decodeFloat32BigEndian(d.buf[:4])
	d.buf = d.buf[4:]
	return v, nil
}

// decodeFloat32BigEndian reconstructs an IEEE-754 single-precision float
// from its 4-byte big-endian wire representation. math.Float32frombits
// already does the right thing on every platform Go targets; the manual
// sign/exponent/mantissa reassembly described by the original C source is
// preserved as decodeFloat32Bits below and covered by a dedicated
// equivalence test, rather than used on the hot path.
func decodeFloat32BigEndian(b []byte) float32 {
	bits := binary.BigEndian.Uint32(b)
	return math.Float32frombits(bits)
}

// decodeFloat32Bits is the portable, bit-twiddling fallback: 1 sign bit, 8
// exponent bits, 23 mantissa bits, big-endian. An exponent field of 255
// yields NaN.
func decodeFloat32Bits(b []byte) float32 {
	bits := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	sign := bits >> 31
	exp := (bits >> 23) & 0xFF
	mantissa := bits & 0x7FFFFF

	if exp == 255 {
		return float32(math.NaN())
	}

	var value float64
	if exp == 0 {
		value = float64(mantissa) / (1 << 23) * math.Pow(2, -126)
	} else {
		value = (1 + float64(mantissa)/(1<<23)) * math.Pow(2, float64(exp)-127)
	}
	if sign == 1 {
		value = -value
	}
	return float32(value)
}

func (d *decoder) readString() (string, error) {
	idx := -1
	for i, b := range d.buf {
		if b == 0 {
			idx = i
			break
		}
	}
	if idx == -1 {
		return "", ErrStringMissingTerminator
	}

	s := string(d.buf[:idx])
	n := idx + 1
	n += padBytesNeeded(n)
	if n > len(d.buf) {
		// Missing trailing padding is tolerated at end-of-packet.
		n = len(d.buf)
	}
	d.buf = d.buf[n:]
	return s, nil
}

func (d *decoder) readBlob() ([]byte, error) {
	size, err := d.readInt32()
	if err != nil {
		return nil, fmt.Errorf("reading blob length: %w", err)
	}
	if size < 0 {
		return nil, ErrNegativeLength
	}
	if int(size) > len(d.buf) {
		return nil, ErrTruncated
	}

	blob := make([]byte, size)
	copy(blob, d.buf[:size])

	n := int(size) + padBytesNeeded(int(size))
	if n > len(d.buf) {
		n = len(d.buf)
	}
	d.buf = d.buf[n:]
	return blob, nil
}

func (d *decoder) readTimetag() (Timetag, error) {
	if len(d.buf) < 8 {
		return Timetag{}, ErrTruncated
	}
	sec := binary.BigEndian.Uint32(d.buf[0:4])
	frac := binary.BigEndian.Uint32(d.buf[4:8])
	d.buf = d.buf[8:]
	return timetagFromNTP(sec, frac), nil
}

// padBytesNeeded returns how many additional NUL bytes are needed so that n
// (a byte count already including any terminator) lands on a 4-byte
// boundary. n itself is not padded if it is already aligned.
func padBytesNeeded(n int) int {
	if r := n % 4; r != 0 {
		return 4 - r
	}
	return 0
}
