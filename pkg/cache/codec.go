package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"

	"github.com/flowgrid/pathcover/pkg/network"
)

// Entry format, before compression:
//
//	[Magic:4][Version:1][NodeCount:8][LinkCount:8][NodeIDs:8*N][LinkIDs:8*M]
//
// All integers little-endian. The whole payload is snappy-compressed on disk
// and in object storage.
const (
	entryMagic   = "PCUV"
	entryVersion = byte(1)
	headerSize   = 4 + 1 + 8 + 8
)

// encodeSnapshot serializes a snapshot to its compressed wire form.
func encodeSnapshot(s *network.Snapshot) []byte {
	raw := make([]byte, headerSize+8*len(s.NodeIDs)+8*len(s.LinkIDs))

	copy(raw[0:4], entryMagic)
	raw[4] = entryVersion
	binary.LittleEndian.PutUint64(raw[5:13], uint64(len(s.NodeIDs)))
	binary.LittleEndian.PutUint64(raw[13:21], uint64(len(s.LinkIDs)))

	off := headerSize
	for _, id := range s.NodeIDs {
		binary.LittleEndian.PutUint64(raw[off:off+8], uint64(id))
		off += 8
	}
	for _, id := range s.LinkIDs {
		binary.LittleEndian.PutUint64(raw[off:off+8], uint64(id))
		off += 8
	}

	return snappy.Encode(nil, raw)
}

// decodeSnapshot parses the compressed wire form back into a snapshot.
// Any structural problem returns ErrCorrupt so callers can fall through.
func decodeSnapshot(data []byte) (*network.Snapshot, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", ErrCorrupt)
	}
	if len(raw) < headerSize {
		return nil, fmt.Errorf("short header: %w", ErrCorrupt)
	}
	if string(raw[0:4]) != entryMagic {
		return nil, fmt.Errorf("bad magic: %w", ErrCorrupt)
	}
	if raw[4] != entryVersion {
		return nil, fmt.Errorf("unknown version %d: %w", raw[4], ErrCorrupt)
	}

	nodeCount := binary.LittleEndian.Uint64(raw[5:13])
	linkCount := binary.LittleEndian.Uint64(raw[13:21])

	maxCount := uint64(len(raw)) / 8
	if nodeCount > maxCount || linkCount > maxCount {
		return nil, fmt.Errorf("implausible counts %d/%d: %w", nodeCount, linkCount, ErrCorrupt)
	}

	want := uint64(headerSize) + 8*nodeCount + 8*linkCount
	if uint64(len(raw)) != want {
		return nil, fmt.Errorf("length %d, want %d: %w", len(raw), want, ErrCorrupt)
	}

	snap := &network.Snapshot{
		NodeIDs: make([]int64, nodeCount),
		LinkIDs: make([]int64, linkCount),
	}

	off := headerSize
	for i := range snap.NodeIDs {
		snap.NodeIDs[i] = int64(binary.LittleEndian.Uint64(raw[off : off+8]))
		off += 8
	}
	for i := range snap.LinkIDs {
		snap.LinkIDs[i] = int64(binary.LittleEndian.Uint64(raw[off : off+8]))
		off += 8
	}
	return snap, nil
}
