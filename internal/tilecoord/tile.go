// Package tilecoord defines the tile coordinate system and tile payload types
// shared by the PostGIS source builder, the composer, and the encoding
// negotiator.
package tilecoord

import "fmt"

// Coord identifies a single tile at a zoom level. x and y must be < 2^z;
// callers that accept coordinates from an HTTP path are responsible for
// checking this invariant before use.
type Coord struct {
	Z uint8
	X uint32
	Y uint32
}

func (c Coord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// Format is the tile payload's content format.
type Format int

const (
	FormatUnknown Format = iota
	FormatMvt
	FormatPng
	FormatJpeg
	FormatWebp
	FormatJson
)

// ContentType returns the HTTP Content-Type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatMvt:
		return "application/x-protobuf"
	case FormatPng:
		return "image/png"
	case FormatJpeg:
		return "image/jpeg"
	case FormatWebp:
		return "image/webp"
	case FormatJson:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func (f Format) String() string {
	switch f {
	case FormatMvt:
		return "mvt"
	case FormatPng:
		return "png"
	case FormatJpeg:
		return "jpeg"
	case FormatWebp:
		return "webp"
	case FormatJson:
		return "json"
	default:
		return "unknown"
	}
}

// Encoding is the tile payload's content encoding.
type Encoding int

const (
	EncodingUncompressed Encoding = iota
	EncodingGzip
	EncodingBrotli
	EncodingZstd
)

// ContentEncoding returns the HTTP Content-Encoding header value, or "" when
// the tile should be served without one.
func (e Encoding) ContentEncoding() string {
	switch e {
	case EncodingGzip:
		return "gzip"
	case EncodingBrotli:
		return "br"
	case EncodingZstd:
		return "zstd"
	default:
		return ""
	}
}

func (e Encoding) String() string {
	switch e {
	case EncodingGzip:
		return "gzip"
	case EncodingBrotli:
		return "brotli"
	case EncodingZstd:
		return "zstd"
	default:
		return "uncompressed"
	}
}

// IsEncoded reports whether the payload carries a compression encoding, as
// opposed to being raw or an already-compressed image container (png/jpeg/
// webp never carry a tile-level Encoding other than Uncompressed).
func (e Encoding) IsEncoded() bool {
	return e == EncodingGzip || e == EncodingBrotli || e == EncodingZstd
}

// Info describes a tile's format and encoding. Two sources can only be merged
// when their Info values are equal.
type Info struct {
	Format   Format
	Encoding Encoding
}

func (i Info) String() string {
	return fmt.Sprintf("%s/%s", i.Format, i.Encoding)
}

// WithEncoding returns a copy of i with Encoding replaced.
func (i Info) WithEncoding(e Encoding) Info {
	i.Encoding = e
	return i
}

// Tile is a fetched or composed tile payload. Empty Data denotes "no content
// at this coordinate"; by invariant an empty Tile always carries
// EncodingUncompressed.
type Tile struct {
	Data []byte
	Info Info
}

// New builds a Tile, normalizing empty data to the Uncompressed invariant.
func New(data []byte, info Info) Tile {
	if len(data) == 0 {
		info.Encoding = EncodingUncompressed
	}
	return Tile{Data: data, Info: info}
}

// Empty reports whether the tile has no content.
func (t Tile) Empty() bool { return len(t.Data) == 0 }
