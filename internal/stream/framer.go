/*
Package stream splits the raw EDGAR push-feed byte stream into complete
SEC-DOCUMENT records, carrying partial records over between chunks.
*/
package stream

import (
	"bytes"
	"strings"
)

var (
	docStart = []byte("<SEC-DOCUMENT>")
	docEnd   = []byte("</SEC-DOCUMENT>")
)

// MaxRemainderBytes caps the carry-over buffer. An unterminated document
// larger than this loses its earliest bytes.
const MaxRemainderBytes = 2_000_000

// Frame scans buf for complete <SEC-DOCUMENT>...</SEC-DOCUMENT> spans and
// returns their decoded texts in order, plus the unconsumed remainder. The
// caller must prepend the remainder to the next incoming chunk. Invalid
// UTF-8 sequences are dropped during decode.
func Frame(buf []byte) ([]string, []byte) {
	var docs []string
	cursor := 0

	for {
		start := bytes.Index(buf[cursor:], docStart)
		if start == -1 {
			break
		}
		start += cursor

		end := bytes.Index(buf[start:], docEnd)
		if end == -1 {
			break
		}
		end += start + len(docEnd)

		docs = append(docs, strings.ToValidUTF8(string(buf[start:end]), ""))
		cursor = end
	}

	remainder := buf
	if cursor > 0 {
		remainder = buf[cursor:]
	}
	if len(remainder) > MaxRemainderBytes {
		remainder = remainder[len(remainder)-MaxRemainderBytes:]
	}

	// Copy so the remainder does not pin the caller's buffer.
	out := make([]byte, len(remainder))
	copy(out, remainder)
	return docs, out
}
