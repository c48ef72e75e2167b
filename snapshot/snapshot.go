// Package snapshot exports a diagnostic dump of the engine's committed
// state to an io.Writer, gob-encoded and optionally compressed. It is
// write-only: nothing in the engine ever reads a snapshot back, so it
// cannot become a second source of truth for the transactional state.
package snapshot

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"distxn/sitemanager"
)

// Codec names the compression applied after gob-encoding the dump.
type Codec string

const (
	CodecNone   Codec = "none"
	CodecSnappy Codec = "snappy"
	CodecLZ4    Codec = "lz4"
	CodecZstd   Codec = "zstd"
)

// ParseCodec maps a config/flag string to a Codec, defaulting to none.
func ParseCodec(s string) Codec {
	switch Codec(s) {
	case CodecSnappy, CodecLZ4, CodecZstd:
		return Codec(s)
	default:
		return CodecNone
	}
}

// Write gob-encodes the site manager's dump and writes it to w, applying
// codec's compression. It never touches the engine's own state beyond
// calling Dump, so taking a snapshot has no transactional side effect.
func Write(w io.Writer, sm *sitemanager.SiteManager, codec Codec) error {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(sm.Dump()); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	compressed, err := compress(raw.Bytes(), codec)
	if err != nil {
		return fmt.Errorf("snapshot: compress: %w", err)
	}

	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("snapshot: write: %w", err)
	}
	return nil
}

// Read decompresses and gob-decodes a snapshot previously produced by
// Write, for offline inspection and tests; the running engine itself
// never calls this.
func Read(r io.Reader, codec Codec) ([]sitemanager.SiteDump, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read: %w", err)
	}
	raw, err := decompress(compressed, codec)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decompress: %w", err)
	}
	var dump []sitemanager.SiteDump
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&dump); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return dump, nil
}

func compress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecSnappy:
		return snappy.Encode(nil, data), nil
	case CodecLZ4:
		var buf bytes.Buffer
		writer := lz4.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecZstd:
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, nil), nil
	default:
		return data, nil
	}
}

func decompress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecSnappy:
		return snappy.Decode(nil, data)
	case CodecLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	case CodecZstd:
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer decoder.Close()
		return decoder.DecodeAll(data, nil)
	default:
		return data, nil
	}
}
