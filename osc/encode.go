package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MarshalBinary encodes the message to its OSC wire representation:
// address, type-tag string, then arguments in order. It implements
// encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writePaddedString(buf, m.Address); err != nil {
		return nil, fmt.Errorf("writing address: %w", err)
	}

	tags := []byte{','}
	payload := new(bytes.Buffer)
	for _, arg := range m.Arguments {
		tag, err := encodeArgument(payload, arg)
		if err != nil {
			return nil, fmt.Errorf("encoding argument: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := writePaddedString(buf, string(tags)); err != nil {
		return nil, fmt.Errorf("writing type tags: %w", err)
	}
	buf.Write(payload.Bytes())

	return buf.Bytes(), nil
}

func encodeArgument(buf *bytes.Buffer, arg Element) (byte, error) {
	switch v := arg.(type) {
	case Int32:
		if err := binary.Write(buf, binary.BigEndian, int32(v)); err != nil {
			return 0, err
		}
		return 'i', nil
	case Float32:
		if err := binary.Write(buf, binary.BigEndian, float32(v)); err != nil {
			return 0, err
		}
		return 'f', nil
	case String:
		if err := writePaddedString(buf, string(v)); err != nil {
			return 0, err
		}
		return 's', nil
	case Blob:
		if err := writeBlob(buf, v); err != nil {
			return 0, err
		}
		return 'b', nil
	default:
		return 0, fmt.Errorf("osc: unsupported argument type %T", arg)
	}
}

// MarshalBinary encodes the bundle: "#bundle", the timetag, then each child
// element framed by its int32 byte length. It implements
// encoding.BinaryMarshaler.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writePaddedString(buf, bundleTag); err != nil {
		return nil, fmt.Errorf("writing bundle tag: %w", err)
	}

	sec, frac := b.Time.toNTP()
	if err := binary.Write(buf, binary.BigEndian, sec); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, frac); err != nil {
		return nil, err
	}

	for _, el := range b.Elements {
		raw, err := marshalElement(el)
		if err != nil {
			return nil, fmt.Errorf("encoding bundle element: %w", err)
		}
		if err := binary.Write(buf, binary.BigEndian, int32(len(raw))); err != nil {
			return nil, err
		}
		buf.Write(raw)
	}

	return buf.Bytes(), nil
}

func marshalElement(el Element) ([]byte, error) {
	switch v := el.(type) {
	case *Message:
		return v.MarshalBinary()
	case *Bundle:
		return v.MarshalBinary()
	default:
		return nil, fmt.Errorf("osc: bundle element must be Message or Bundle, got %T", el)
	}
}

func writePaddedString(buf *bytes.Buffer, s string) error {
	buf.WriteString(s)
	buf.WriteByte(0)
	for i := 0; i < padBytesNeeded(len(s)+1); i++ {
		buf.WriteByte(0)
	}
	return nil
}

func writeBlob(buf *bytes.Buffer, data []byte) error {
	if err := binary.Write(buf, binary.BigEndian, int32(len(data))); err != nil {
		return err
	}
	buf.Write(data)
	for i := 0; i < padBytesNeeded(len(data)); i++ {
		buf.WriteByte(0)
	}
	return nil
}
