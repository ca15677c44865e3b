package encoding

import (
	"bytes"
	"testing"

	"github.com/nyurik/martin-go/internal/tilecoord"
)

func TestNegotiatePreference(t *testing.T) {
	cases := []struct {
		name        string
		acceptEnc   string
		preferred   Preferred
		wantEnc     tilecoord.Encoding
	}{
		{"wildcard, default preference", "*", PreferredGzip, tilecoord.EncodingGzip},
		{"wildcard, prefer brotli", "*", PreferredBrotli, tilecoord.EncodingBrotli},
		{"wildcard, prefer gzip", "*", PreferredGzip, tilecoord.EncodingGzip},
		{"four codings, default", "gzip, deflate, br, zstd", PreferredGzip, tilecoord.EncodingGzip},
		{"four codings, prefer brotli", "gzip, deflate, br, zstd", PreferredBrotli, tilecoord.EncodingBrotli},
		{"four codings, prefer gzip", "gzip, deflate, br, zstd", PreferredGzip, tilecoord.EncodingGzip},
		{"equal q, server prefers gzip", "br;q=1, gzip;q=1", PreferredGzip, tilecoord.EncodingGzip},
		{"equal q, server prefers brotli", "gzip;q=1, br;q=1", PreferredBrotli, tilecoord.EncodingBrotli},
		{"client favors gzip by q, server prefers brotli, q wins over preference", "gzip;q=1, br;q=0.5", PreferredBrotli, tilecoord.EncodingGzip},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := Negotiate(c.acceptEnc, c.preferred)
			if !ok {
				t.Fatalf("Negotiate(%q, %v) rejected, want %v", c.acceptEnc, c.preferred, c.wantEnc)
			}
			if got != c.wantEnc {
				t.Errorf("Negotiate(%q, %v) = %v, want %v", c.acceptEnc, c.preferred, got, c.wantEnc)
			}
		})
	}
}

func TestNegotiateIdentityOnlyAcceptable(t *testing.T) {
	got, ok := Negotiate("gzip;q=0, br;q=0", PreferredGzip)
	if !ok {
		t.Fatal("expected identity fallback to be acceptable")
	}
	if got != tilecoord.EncodingUncompressed {
		t.Errorf("got %v, want EncodingUncompressed", got)
	}
}

func TestNegotiateNothingAcceptable(t *testing.T) {
	_, ok := Negotiate("gzip;q=0, br;q=0, identity;q=0", PreferredGzip)
	if ok {
		t.Fatal("expected no acceptable encoding")
	}
}

func TestGzipRoundTrip(t *testing.T) {
	tile := tilecoord.New([]byte("hello vector tile"), tilecoord.Info{Format: tilecoord.FormatMvt})
	enc, err := Encode(tile, tilecoord.EncodingGzip)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if enc.Info.Encoding != tilecoord.EncodingGzip {
		t.Fatalf("encoded tile has encoding %v, want gzip", enc.Info.Encoding)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(dec.Data, tile.Data) {
		t.Errorf("round trip mismatch: got %q, want %q", dec.Data, tile.Data)
	}
}

func TestBrotliRoundTrip(t *testing.T) {
	tile := tilecoord.New([]byte("hello vector tile"), tilecoord.Info{Format: tilecoord.FormatMvt})
	enc, err := Encode(tile, tilecoord.EncodingBrotli)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(dec.Data, tile.Data) {
		t.Errorf("round trip mismatch: got %q, want %q", dec.Data, tile.Data)
	}
}

func TestDecodeRejectsUnsupportedEncoding(t *testing.T) {
	tile := tilecoord.New([]byte{1, 2, 3}, tilecoord.Info{Format: tilecoord.FormatMvt, Encoding: tilecoord.EncodingZstd})
	if _, err := Decode(tile); err == nil {
		t.Fatal("expected an error decoding an unsupported encoding")
	}
}
