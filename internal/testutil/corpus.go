// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/flate"
	"github.com/ulikunitz/xz"
)

// FlateBlob deflate-compresses data at level, for building archive-shaped
// fixtures (a ZIP-style "local file header" followed by compressed member
// data) that exercise marker-scan and jump tokens against high-entropy
// payloads rather than all-literal test vectors.
func FlateBlob(data []byte, level int) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// XZBlob xz-compresses data, the second member-compression codec a ZIP-
// shaped fixture can carry alongside FlateBlob.
func XZBlob(data []byte) []byte {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Record builds marker + big-endian uint32 length prefix + payload, the
// shape a marker-scan-then-length-prefixed-field blueprint expects to find
// and consume.
func Record(marker []byte, payload []byte) []byte {
	out := make([]byte, 0, len(marker)+4+len(payload))
	out = append(out, marker...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out = append(out, lenBuf[:]...)
	out = append(out, payload...)
	return out
}
