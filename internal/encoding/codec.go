package encoding

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/nyurik/martin-go/internal/martinerr"
	"github.com/nyurik/martin-go/internal/tilecoord"
)

// Encode (re-)compresses tile into enc, leaving it untouched for
// EncodingUncompressed. Callers are expected to have already decoded any
// prior encoding via Decode.
func Encode(tile tilecoord.Tile, enc tilecoord.Encoding) (tilecoord.Tile, error) {
	switch enc {
	case tilecoord.EncodingGzip:
		data, err := encodeGzip(tile.Data)
		if err != nil {
			return tilecoord.Tile{}, martinerr.Internal("gzip encode", err)
		}
		return tilecoord.New(data, tile.Info.WithEncoding(tilecoord.EncodingGzip)), nil
	case tilecoord.EncodingBrotli:
		data := encodeBrotli(tile.Data)
		return tilecoord.New(data, tile.Info.WithEncoding(tilecoord.EncodingBrotli)), nil
	default:
		return tile, nil
	}
}

// Decode uncompresses tile if it carries a known compression encoding,
// returning a BadRequest-classified error for an encoding this server cannot
// decode (spec.md §4.6 "decode on demand" contract).
func Decode(tile tilecoord.Tile) (tilecoord.Tile, error) {
	if !tile.Info.Encoding.IsEncoded() {
		return tile, nil
	}
	switch tile.Info.Encoding {
	case tilecoord.EncodingGzip:
		data, err := decodeGzip(tile.Data)
		if err != nil {
			return tilecoord.Tile{}, martinerr.Internal("gzip decode", err)
		}
		return tilecoord.New(data, tile.Info.WithEncoding(tilecoord.EncodingUncompressed)), nil
	case tilecoord.EncodingBrotli:
		data, err := decodeBrotli(tile.Data)
		if err != nil {
			return tilecoord.Tile{}, martinerr.Internal("brotli decode", err)
		}
		return tilecoord.New(data, tile.Info.WithEncoding(tilecoord.EncodingUncompressed)), nil
	default:
		return tilecoord.Tile{}, martinerr.BadRequest(
			"tile is stored as %s, but the client does not accept this encoding", tile.Info)
	}
}

func encodeGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func encodeBrotli(data []byte) []byte {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

func decodeBrotli(data []byte) ([]byte, error) {
	return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
}
