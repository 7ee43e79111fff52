// Package decode implements the result-value decoders (C8): stateless
// transformations from the PostgreSQL text protocol to the four
// source-engine value kinds (integer, float, text, blob), parameterised
// by the server's reported column type name.
package decode

import (
	"strconv"
	"strings"
)

// Kind is one of the four source-engine value kinds a column can decode
// to (§4.8 "Type accessor: map OID -> {INTEGER, FLOAT, BLOB, TEXT, NULL}").
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindBlob
	KindText
)

// integerTypes and floatTypes classify lib/pq's DatabaseTypeName() output,
// which this shim uses in place of a raw numeric OID (§6 FType doc).
var integerTypes = map[string]bool{
	"INT2": true, "INT4": true, "INT8": true, "OID": true, "BOOL": true,
}

var floatTypes = map[string]bool{
	"FLOAT4": true, "FLOAT8": true, "NUMERIC": true,
}

// ClassifyType maps a server type name to a Kind (§4.8 "Type accessor").
func ClassifyType(typeName string) Kind {
	switch {
	case integerTypes[typeName]:
		return KindInteger
	case floatTypes[typeName]:
		return KindFloat
	case typeName == "BYTEA":
		return KindBlob
	default:
		return KindText
	}
}

// hexLookup is the 256-entry lookup table used to decode BYTEA's
// `\x...` hex encoding two nybbles at a time (§4.7 "decoded ... via a
// 256-entry lookup table and cached per-row"); entries for non-hex bytes
// are -1.
var hexLookup = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for c := '0'; c <= '9'; c++ {
		t[c] = int8(c - '0')
	}
	for c := 'a'; c <= 'f'; c++ {
		t[c] = int8(c-'a') + 10
	}
	for c := 'A'; c <= 'F'; c++ {
		t[c] = int8(c-'A') + 10
	}
	return t
}()

// Int decodes the integer accessor form of a text-protocol value:
// booleans decode as 1/0, everything else as a base-10 integer (§4.8
// "Integer accessors").
func Int(text string, isNull bool) int64 {
	if isNull {
		return 0
	}
	switch text {
	case "t":
		return 1
	case "f":
		return 0
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// a float-shaped integer column value (e.g. "3.0" from numeric
		// arithmetic) still needs to produce something usable
		if f, ferr := strconv.ParseFloat(text, 64); ferr == nil {
			return int64(f)
		}
		return 0
	}
	return n
}

// Float decodes the float accessor form: booleans decode as 1.0/0.0,
// everything else as a decimal float (§4.8 "Float accessors").
func Float(text string, isNull bool) float64 {
	if isNull {
		return 0
	}
	switch text {
	case "t":
		return 1.0
	case "f":
		return 0.0
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return f
}

// Text returns the value unchanged; the statement object is responsible
// for caching it so the returned pointer remains valid until the cursor
// advances (§4.8 "Text accessors").
func Text(text string) string {
	return text
}

// Blob decodes the blob accessor form. For BYTEA values in the
// `\x`-prefixed hex encoding, the hex is decoded via hexLookup; any other
// text is returned as raw bytes, matching the source engine's behaviour
// of treating non-BYTEA columns requested as blobs as an opaque byte copy
// (§4.8 "Blob accessors").
func Blob(text string, typeName string, isNull bool) []byte {
	if isNull {
		return nil
	}
	if typeName == "BYTEA" && strings.HasPrefix(text, "\\x") {
		return decodeHex(text[2:])
	}
	return []byte(text)
}

func decodeHex(hex string) []byte {
	out := make([]byte, 0, len(hex)/2)
	for i := 0; i+1 < len(hex); i += 2 {
		hi := hexLookup[hex[i]]
		lo := hexLookup[hex[i+1]]
		if hi < 0 || lo < 0 {
			break
		}
		out = append(out, byte(hi)<<4|byte(lo))
	}
	return out
}
