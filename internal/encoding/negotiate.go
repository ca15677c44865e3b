// Package encoding negotiates a response Content-Encoding from a client's
// Accept-Encoding header and provides the gzip/brotli codecs tile responses
// are (re-)compressed with. Ported from the original implementation's
// srv/tiles.rs negotiate/ranked_accept_items/encoding_rank.
package encoding

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nyurik/martin-go/internal/tilecoord"
)

// Preferred is the server's preferred codec when the client has no
// preference of its own (spec.md §4.6).
type Preferred int

const (
	PreferredGzip Preferred = iota
	PreferredBrotli
)

// item is one parsed Accept-Encoding token: a coding name (or "*") with a
// quality value in [0, 1000] (thousandths, to avoid float comparison noise).
type item struct {
	coding string // "gzip", "br", "identity", "*", or some unknown token
	q      int
}

const qualityMax = 1000

func (it item) isAny() bool      { return it.coding == "*" }
func (it item) isIdentity() bool { return it.coding == "identity" }

// parseAcceptEncoding parses a raw Accept-Encoding header value into ranked
// items, tolerant of missing q-values (implicit q=1) and whitespace.
func parseAcceptEncoding(header string) []item {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	items := make([]item, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		coding := p
		q := qualityMax
		if i := strings.Index(p, ";"); i >= 0 {
			coding = strings.TrimSpace(p[:i])
			params := p[i+1:]
			for _, param := range strings.Split(params, ";") {
				param = strings.TrimSpace(param)
				if v, ok := strings.CutPrefix(param, "q="); ok {
					q = parseQuality(v)
				}
			}
		}
		items = append(items, item{coding: strings.ToLower(coding), q: q})
	}
	return items
}

func parseQuality(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return qualityMax
	}
	q := int(f * float64(qualityMax))
	if q < 0 {
		q = 0
	}
	if q > qualityMax {
		q = qualityMax
	}
	return q
}

var supportedEncodings = map[string]tilecoord.Encoding{
	"gzip":     tilecoord.EncodingGzip,
	"br":       tilecoord.EncodingBrotli,
	"identity": tilecoord.EncodingUncompressed,
}

// Negotiate picks the Content-Encoding to serve given the client's raw
// Accept-Encoding header and the server's preferred codec, mirroring
// negotiate()'s exact ranking/tie-break/identity-fallback behavior. The
// returned ok is false only when no encoding (not even identity) is
// acceptable to the client.
func Negotiate(acceptEncodingHeader string, preferred Preferred) (tilecoord.Encoding, bool) {
	items := parseAcceptEncoding(acceptEncodingHeader)

	if len(items) == 0 || (len(items) == 1 && items[0].isAny()) {
		if preferred == PreferredBrotli {
			return tilecoord.EncodingBrotli, true
		}
		return tilecoord.EncodingGzip, true
	}

	ranked := rankedAcceptItems(items, preferred)
	identityOK := isIdentityAcceptable(ranked)

	for _, it := range ranked {
		if it.q == 0 {
			continue
		}
		if enc, ok := supportedEncodings[it.coding]; ok {
			return enc, true
		}
	}

	if identityOK {
		return tilecoord.EncodingUncompressed, true
	}
	return tilecoord.EncodingUncompressed, false
}

// rankedAcceptItems stable-sorts items by (quality desc, server rank desc),
// matching ranked_accept_items.
func rankedAcceptItems(items []item, preferred Preferred) []item {
	out := make([]item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].q != out[j].q {
			return out[i].q > out[j].q
		}
		return encodingRank(out[i], preferred) > encodingRank(out[j], preferred)
	})
	return out
}

// encodingRank is the server's tie-break preference among equal q-values,
// matching encoding_rank's gzip-preferred / brotli-preferred tables.
func encodingRank(it item, preferred Preferred) int {
	if it.q == 0 {
		return 0
	}
	if it.isAny() || it.isIdentity() {
		return 0
	}
	switch preferred {
	case PreferredGzip:
		switch it.coding {
		case "gzip":
			return 5
		case "br":
			return 4
		case "zstd":
			return 3
		case "deflate":
			return 2
		default:
			return 1
		}
	default: // PreferredBrotli
		switch it.coding {
		case "br":
			return 5
		case "gzip":
			return 4
		case "zstd":
			return 3
		case "deflate":
			return 2
		default:
			return 1
		}
	}
}

// isIdentityAcceptable mirrors is_identity_acceptable: items must already be
// in descending-quality order.
func isIdentityAcceptable(ranked []item) bool {
	if len(ranked) == 0 {
		return true
	}
	for _, it := range ranked {
		if it.isIdentity() {
			return it.q > 0
		}
		if it.isAny() {
			return it.q > 0
		}
	}
	return true
}
