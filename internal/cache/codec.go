package cache

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"iptv-viewer/internal/channel"
)

// snapshotBlob is the persisted portion of a snapshot. Fingerprint and
// parse time live in their own columns; everything that must round-trip
// exactly (record order, ids, attribute maps, category order,
// diagnostics) lives in the blob.
type snapshotBlob struct {
	Records     []channel.Record     `cbor:"1,keyasint"`
	Categories  []channel.Category   `cbor:"2,keyasint"`
	Diagnostics []channel.Diagnostic `cbor:"3,keyasint"`
}

func encodeSnapshot(snap *channel.Snapshot) ([]byte, error) {
	return cbor.Marshal(snapshotBlob{
		Records:     snap.Records,
		Categories:  snap.Categories,
		Diagnostics: snap.Diagnostics,
	})
}

func decodeSnapshot(data []byte) (*channel.Snapshot, error) {
	var blob snapshotBlob
	if err := cbor.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("cbor decode: %w", err)
	}
	return &channel.Snapshot{
		Records:     blob.Records,
		Categories:  blob.Categories,
		Diagnostics: blob.Diagnostics,
	}, nil
}
