// Package main implements an encoded-message inspector CLI
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/b71729/binser"
)

// TermRed provides ansi escape codes for a red section.
func TermRed(s string) string {
	return fmt.Sprintf("\x1b[31;1m%s\x1b[0m", s)
}

// TermGreen provides ansi escape codes for a green section.
func TermGreen(s string) string {
	return fmt.Sprintf("\x1b[92;1m%s\x1b[0m", s)
}

// flagName labels the bytes which double as type flags in the format.
// Without the schema a byte can only be a candidate, so the annotation is a
// reading aid, not a decode.
func flagName(b byte) string {
	switch b {
	case binser.FlagSome:
		return "some"
	case binser.FlagUnitVariant:
		return "unit-variant"
	case binser.FlagStruct:
		return "struct/non-unit-variant"
	case binser.FlagStructVariant:
		return "struct-variant"
	}
	return ""
}

func printable(b byte) byte {
	if b >= 0x20 && b <= 0x7E {
		return b
	}
	return '.'
}

func dump(buf []byte) {
	for off := 0; off < len(buf); off += 16 {
		end := off + 16
		if end > len(buf) {
			end = len(buf)
		}
		row := buf[off:end]
		hexed := make([]string, len(row))
		ascii := make([]byte, len(row))
		flags := []string{}
		for i, b := range row {
			hexed[i] = fmt.Sprintf("%02X", b)
			ascii[i] = printable(b)
			if name := flagName(b); name != "" {
				flags = append(flags, fmt.Sprintf("+%d %s?", i, name))
			}
		}
		line := fmt.Sprintf("%08X  %-47s  |%s|", off, strings.Join(hexed, " "), ascii)
		if len(flags) > 0 {
			line += "  " + strings.Join(flags, " ")
		}
		fmt.Printf("  %s %s\n", TermGreen("+"), line)
	}
}

func main() {
	binser.GetConfig()
	if len(os.Args) != 2 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		fmt.Printf("  %s Usage: %s FILE\n", TermRed("!!"), filepath.Base(os.Args[0]))
		return
	}
	buf, err := ioutil.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("  %s Failed to read '%s': %v\n", TermRed("!!"), os.Args[1], err)
		return
	}
	fmt.Printf("  %s %s: %d bytes\n", TermGreen("+"), filepath.Base(os.Args[1]), len(buf))
	dump(buf)

	// a leading count is common enough (strings, sequences, maps) to be
	// worth attempting
	if n, size, err := binser.ReadCount(buf); err == nil {
		fmt.Printf("  %s leading count candidate: %d (%d byte prefix)\n", TermGreen("+"), n, size)
	}
}
