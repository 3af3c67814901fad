package persist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/orneryd/mgraph/internal/bufpool"
	"github.com/orneryd/mgraph/pkg/graph"
	"golang.org/x/crypto/blake2b"
)

// shardMagic identifies a byte stream as a graph shard, guarding against
// loading an unrelated blob from a host store that holds more than this
// module's data.
var shardMagic = [4]byte{'M', 'G', 'R', '1'}

// ErrCorrupt is returned when a shard's checksum does not match its
// payload, or its magic/version header is not recognized.
var ErrCorrupt = errors.New("persist: corrupt shard")

// recordKind tags each entry in a primary shard's payload.
type recordKind byte

const (
	recordNode recordKind = iota
	recordEdge
)

// Shard is one self-contained, checksummed unit of a persisted graph. A
// graph encodes to exactly one meta shard followed by zero or more primary
// shards (none for a graph with no nodes); DefaultMaxPayload bounds the
// record bytes a single primary shard holds, so a very large graph's
// persisted form is a bundle
// of many modestly sized host-store values rather than one unbounded blob.
type Shard struct {
	GraphName string
	Kind      ShardKind
	Seq       int
	Payload   []byte
	Checksum  [32]byte
}

// ShardKind distinguishes the metadata shard (graph-level counts, used to
// validate a restore completed) from primary shards (actual node/edge
// records).
type ShardKind byte

const (
	ShardMeta ShardKind = iota
	ShardPrimary
)

// DefaultMaxPayload bounds the uncompressed record bytes packed into one
// primary shard before a new one is started.
const DefaultMaxPayload = 1 << 20 // 1 MiB

// Encode serializes g into a meta shard followed by zero or more primary
// shards. Encode takes a read lease on g for the duration of the call, so
// it observes one consistent point-in-time snapshot.
func Encode(g *graph.Graph) ([]Shard, error) {
	g.RLock()
	defer g.RUnlock()

	stats := g.Stats()
	meta := &bytes.Buffer{}
	writeUint32(meta, uint32(stats.NodeCount))
	writeUint32(meta, uint32(stats.EdgeCount))
	writeUint32(meta, uint32(stats.Capacity))

	shards := []Shard{finalizeShard(g.Name(), ShardMeta, 0, meta.Bytes())}

	seq := 1
	cur := &bytes.Buffer{}
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		shards = append(shards, finalizeShard(g.Name(), ShardPrimary, seq, cur.Bytes()))
		seq++
		cur = &bytes.Buffer{}
	}

	var encErr error
	g.IterateNodes(func(n graph.Node) bool {
		rec := bytes.NewBuffer(bufpool.GetByteBuffer())
		rec.WriteByte(byte(recordNode))
		writeUint32(rec, uint32(n.ID))
		writeUint32(rec, uint32(len(n.Labels)))
		for _, l := range n.Labels {
			writeUint32(rec, uint32(len(l)))
			rec.WriteString(l)
		}
		if err := encodeProps(rec, n.Properties); err != nil {
			encErr = err
			return false
		}
		if cur.Len()+rec.Len() > DefaultMaxPayload {
			flush()
		}
		cur.Write(rec.Bytes())
		bufpool.PutByteBuffer(rec.Bytes())
		return true
	})
	if encErr != nil {
		return nil, encErr
	}

	g.IterateEdges(func(e graph.Edge) bool {
		rec := bytes.NewBuffer(bufpool.GetByteBuffer())
		rec.WriteByte(byte(recordEdge))
		writeUint32(rec, uint32(e.ID))
		writeUint32(rec, uint32(e.From))
		writeUint32(rec, uint32(e.To))
		writeUint32(rec, uint32(len(e.RelType)))
		rec.WriteString(e.RelType)
		if err := encodeProps(rec, e.Properties); err != nil {
			encErr = err
			return false
		}
		if cur.Len()+rec.Len() > DefaultMaxPayload {
			flush()
		}
		cur.Write(rec.Bytes())
		bufpool.PutByteBuffer(rec.Bytes())
		return true
	})
	if encErr != nil {
		return nil, encErr
	}
	flush()

	return shards, nil
}

func finalizeShard(graphName string, kind ShardKind, seq int, payload []byte) Shard {
	return Shard{
		GraphName: graphName,
		Kind:      kind,
		Seq:       seq,
		Payload:   payload,
		Checksum:  blake2b.Sum256(payload),
	}
}

// Marshal serializes a Shard to its host-store wire form: a fixed header
// (magic, version, kind, seq, payload length, checksum) followed by the
// payload bytes.
func (s Shard) Marshal() []byte {
	buf := &bytes.Buffer{}
	buf.Write(shardMagic[:])
	writeUint32(buf, 1) // version
	buf.WriteByte(byte(s.Kind))
	writeUint32(buf, uint32(s.Seq))
	writeUint32(buf, uint32(len(s.Payload)))
	buf.Write(s.Checksum[:])
	buf.Write(s.Payload)
	return buf.Bytes()
}

// UnmarshalShard parses the wire form Marshal produces, verifying the
// magic header and checksum before returning.
func UnmarshalShard(graphName string, data []byte) (Shard, error) {
	if len(data) < len(shardMagic)+4+1+4+4+32 {
		return Shard{}, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	r := bytes.NewReader(data)
	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil || magic != shardMagic {
		return Shard{}, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	var versionBuf [4]byte
	if _, err := r.Read(versionBuf[:]); err != nil {
		return Shard{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if binary.BigEndian.Uint32(versionBuf[:]) != 1 {
		return Shard{}, fmt.Errorf("%w: unsupported version", ErrCorrupt)
	}
	kindByte, err := r.ReadByte()
	if err != nil {
		return Shard{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	seq, err := readUint32(r)
	if err != nil {
		return Shard{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	plen, err := readUint32(r)
	if err != nil {
		return Shard{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var checksum [32]byte
	if _, err := r.Read(checksum[:]); err != nil {
		return Shard{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	payload := make([]byte, plen)
	if _, err := r.Read(payload); err != nil {
		return Shard{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if blake2b.Sum256(payload) != checksum {
		return Shard{}, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return Shard{
		GraphName: graphName,
		Kind:      ShardKind(kindByte),
		Seq:       int(seq),
		Payload:   payload,
		Checksum:  checksum,
	}, nil
}

// Decode rebuilds a graph from shards produced by Encode (in any order;
// Decode sorts primary shards by sequence number before replaying them).
// graphName names the resulting graph.
func Decode(graphName string, shards []Shard) (*graph.Graph, error) {
	g, err := graph.New(graphName)
	if err != nil {
		return nil, err
	}

	var primaries []Shard
	var expectedNodes, expectedEdges uint32
	haveMeta := false
	for _, s := range shards {
		switch s.Kind {
		case ShardMeta:
			r := bytes.NewReader(s.Payload)
			expectedNodes, err = readUint32(r)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			expectedEdges, err = readUint32(r)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			haveMeta = true
		case ShardPrimary:
			primaries = append(primaries, s)
		}
	}
	if !haveMeta {
		return nil, fmt.Errorf("%w: missing meta shard", ErrCorrupt)
	}
	sortShardsBySeq(primaries)

	var nodeCount, edgeCount uint32
	for _, s := range primaries {
		r := bytes.NewReader(s.Payload)
		for r.Len() > 0 {
			kindByte, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			switch recordKind(kindByte) {
			case recordNode:
				id, labels, props, err := decodeNodeRecord(r)
				if err != nil {
					return nil, err
				}
				if err := g.RestoreNode(id, labels, props); err != nil {
					return nil, err
				}
				nodeCount++
			case recordEdge:
				id, from, to, relType, props, err := decodeEdgeRecord(r)
				if err != nil {
					return nil, err
				}
				if err := g.RestoreEdge(id, from, to, relType, props); err != nil {
					return nil, err
				}
				edgeCount++
			default:
				return nil, fmt.Errorf("%w: unknown record kind %d", ErrCorrupt, kindByte)
			}
		}
	}
	if nodeCount != expectedNodes || edgeCount != expectedEdges {
		return nil, fmt.Errorf("%w: meta shard counts (%d nodes, %d edges) do not match replayed records (%d, %d)",
			ErrCorrupt, expectedNodes, expectedEdges, nodeCount, edgeCount)
	}
	return g, nil
}

func decodeNodeRecord(r *bytes.Reader) (id int, labels []string, props map[string]any, err error) {
	idU, err := readUint32(r)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	nLabels, err := readUint32(r)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	labels = make([]string, nLabels)
	for i := range labels {
		labels[i], err = readString(r)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	props, err = decodeProps(r)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return int(idU), labels, props, nil
}

func decodeEdgeRecord(r *bytes.Reader) (id, from, to int, relType string, props map[string]any, err error) {
	idU, err := readUint32(r)
	if err != nil {
		return 0, 0, 0, "", nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	fromU, err := readUint32(r)
	if err != nil {
		return 0, 0, 0, "", nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	toU, err := readUint32(r)
	if err != nil {
		return 0, 0, 0, "", nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	relType, err = readString(r)
	if err != nil {
		return 0, 0, 0, "", nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	props, err = decodeProps(r)
	if err != nil {
		return 0, 0, 0, "", nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return int(idU), int(fromU), int(toU), relType, props, nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func sortShardsBySeq(shards []Shard) {
	for i := 1; i < len(shards); i++ {
		for j := i; j > 0 && shards[j-1].Seq > shards[j].Seq; j-- {
			shards[j-1], shards[j] = shards[j], shards[j-1]
		}
	}
}
