// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command bitdump extracts a data tree out of a file per a blueprint
// pattern and prints it, for manually inspecting or debugging a blueprint
// against real data.
//
// Example usage:
//
//	$ bitdump -pattern 'x32 u32 B$' -file payload.bin
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dsnet/bitarchitect/bitengine"
	"github.com/dsnet/bitarchitect/bitengine/value"
	"github.com/dsnet/golib/ioutil"
)

var registry = bitengine.NewRegistry()

func main() {
	pattern := flag.String("pattern", "", "blueprint pattern string")
	file := flag.String("file", "", "input file to extract (- for stdin)")
	format := flag.String("format", "", "named blueprint registered with -format; overrides -pattern")
	asJSON := flag.Bool("json", false, "print the data tree as JSON instead of indented text")
	trace := flag.Bool("trace", false, "print a hex dump of the bytes actually consumed")
	flag.Parse()

	var blueprint bitengine.Blueprint = *pattern
	if *format != "" {
		bp, err := registry.Lookup(*format)
		if err != nil {
			log.Fatalf("bitdump: %v (known formats: %v)", err, registry.Names())
		}
		blueprint = bp
	}
	if *pattern == "" && *format == "" {
		log.Fatal("bitdump: one of -pattern or -format is required")
	}

	src, err := openInput(*file)
	if err != nil {
		log.Fatalf("bitdump: %v", err)
	}
	defer src.Close()

	var traceBuf bytes.Buffer
	data, err := readAll(src, *trace, &traceBuf)
	if err != nil {
		log.Fatalf("bitdump: reading %s: %v", *file, err)
	}

	tree, err := bitengine.ExtractDataTree(blueprint, bytes.NewReader(data))
	if err != nil {
		log.Fatalf("bitdump: %v", err)
	}

	if *trace {
		fmt.Fprintf(os.Stderr, "consumed %d bytes:\n%s", traceBuf.Len(), hexDump(traceBuf.Bytes()))
	}
	printTree(tree, *asJSON)
}

func openInput(file string) (io.ReadCloser, error) {
	if file == "" || file == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(file)
}

// readAll drains src into a byte slice, optionally teeing every byte read
// into trace the way xflate/meta.Reader tees into its BlockData scratch
// buffer, giving -trace a "bytes consumed so far" dump without re-deriving
// that bookkeeping inside the extraction engine itself.
func readAll(src io.Reader, doTrace bool, trace *bytes.Buffer) ([]byte, error) {
	if !doTrace {
		return io.ReadAll(src)
	}
	br := bufio.NewReader(src)
	tee := ioutil.TeeByteReader{R: br, W: trace}
	var out []byte
	for {
		b, err := tee.ReadByte()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
}

func printTree(tree bitengine.DataTree, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonify(tree)); err != nil {
			log.Fatalf("bitdump: %v", err)
		}
		return
	}
	printIndented(tree, 0)
}

func jsonify(tree bitengine.DataTree) []interface{} {
	out := make([]interface{}, len(tree))
	for i, item := range tree {
		switch x := item.(type) {
		case bitengine.DataTree:
			out[i] = jsonify(x)
		case value.Value:
			out[i] = jsonifyValue(x)
		default:
			out[i] = fmt.Sprintf("%v", x)
		}
	}
	return out
}

func jsonifyValue(v value.Value) interface{} {
	switch v.Encoding {
	case value.UInt:
		return v.Uint.String()
	case value.SInt:
		return v.Sint.String()
	case value.F32:
		return v.F32
	case value.F64:
		return v.F64
	case value.HexLower, value.HexUpper:
		return v.Hex
	case value.Bin:
		return v.BinS
	default:
		return fmt.Sprintf("%x", v.Bytes)
	}
}

func printIndented(tree bitengine.DataTree, depth int) {
	indent := func() { fmt.Print(bytesRepeat("  ", depth)) }
	for _, item := range tree {
		switch x := item.(type) {
		case bitengine.DataTree:
			indent()
			fmt.Println("[")
			printIndented(x, depth+1)
			indent()
			fmt.Println("]")
		case value.Value:
			indent()
			fmt.Printf("%s: %v\n", x.Encoding, jsonifyValue(x))
		}
	}
}

func bytesRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func hexDump(b []byte) string {
	var buf bytes.Buffer
	for i := 0; i < len(b); i += 16 {
		end := i + 16
		if end > len(b) {
			end = len(b)
		}
		fmt.Fprintf(&buf, "  %04x  % x\n", i, b[i:end])
	}
	return buf.String()
}
