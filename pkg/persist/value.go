// Package persist encodes and decodes a graph as a sequence of
// self-describing, checksummed shard records suitable for storage in any
// host key-value store. pkg/persist/badgerstore is one concrete host
// backend; this package itself never imports a storage client, so the
// wire format has no dependency on which backend a deployment picks.
package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// typeTag self-describes a property value on the wire. The closed set
// mirrors the only property types a node or edge is ever allowed to carry.
type typeTag byte

const (
	tagNull typeTag = iota
	tagBool
	tagInt
	tagFloat
	tagString
	tagList
)

// encodeValue appends v's wire encoding to buf. v must be nil, bool,
// int64, float64, string, or []any of the same.
func encodeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteByte(byte(tagNull))
	case bool:
		buf.WriteByte(byte(tagBool))
		if val {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case int64:
		buf.WriteByte(byte(tagInt))
		writeUint64(buf, uint64(val))
	case int:
		return encodeValue(buf, int64(val))
	case float64:
		buf.WriteByte(byte(tagFloat))
		writeUint64(buf, math.Float64bits(val))
	case string:
		buf.WriteByte(byte(tagString))
		writeUint32(buf, uint32(len(val)))
		buf.WriteString(val)
	case []any:
		buf.WriteByte(byte(tagList))
		writeUint32(buf, uint32(len(val)))
		for _, item := range val {
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("persist: unsupported property type %T", v)
	}
	return nil
}

// decodeValue reads one wire-encoded value from r.
func decodeValue(r *bytes.Reader) (any, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("persist: truncated value: %w", err)
	}
	switch typeTag(tagByte) {
	case tagNull:
		return nil, nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case tagInt:
		u, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return int64(u), nil
	case tagFloat:
		u, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(u), nil
	case tagString:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := r.Read(buf); err != nil {
			return nil, err
		}
		return string(buf), nil
	case tagList:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i := range out {
			v, err := decodeValue(r)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("persist: unknown type tag %d", tagByte)
	}
}

func encodeProps(buf *bytes.Buffer, props map[string]any) error {
	writeUint32(buf, uint32(len(props)))
	for k, v := range props {
		writeUint32(buf, uint32(len(k)))
		buf.WriteString(k)
		if err := encodeValue(buf, v); err != nil {
			return err
		}
	}
	return nil
}

func decodeProps(r *bytes.Reader) (map[string]any, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make(map[string]any, n)
	for i := uint32(0); i < n; i++ {
		klen, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		kbuf := make([]byte, klen)
		if _, err := r.Read(kbuf); err != nil {
			return nil, err
		}
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		out[string(kbuf)] = v
	}
	return out, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
