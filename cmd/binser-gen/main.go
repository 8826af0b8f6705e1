package main

import (
	"fmt"
	"os"
	"path/filepath"

	. "github.com/b71729/binser" // yes, dot imports are discouraged, but otherwise prefixing everything is a pain in the arse
)

/*
===============================================================================
    Util: Generate Synthetic Encoded Message
===============================================================================
*/

var baseFile = filepath.Base(os.Args[0])

var logger = NewConsoleLogger(os.Stderr)

func check(err error) {
	if err != nil {
		logger.Fatalf("error: %v", err)
	}
}

func usage() {
	fmt.Printf("binser version %s\n", BinserVersion)
	fmt.Printf("usage: %s out_file\n", baseFile)
	fmt.Printf("writes a synthetic sample message using the streaming encoder\n")
	os.Exit(1)
}

// writeSample emits a small message exercising most shapes:
// a struct of three fields, one of which is optional and one a sequence.
func writeSample(w ShapeWriter) error {
	if err := w.BeginStruct("Sample", 3); err != nil {
		return err
	}
	if err := w.WriteString("synthetic"); err != nil {
		return err
	}
	if err := w.WriteSome(); err != nil {
		return err
	}
	if err := w.WriteUint32(0x41); err != nil {
		return err
	}
	if err := w.BeginSeq(3); err != nil {
		return err
	}
	for _, b := range []uint8{0x41, 0x42, 0x43} {
		if err := w.WriteUint8(b); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	GetConfig()
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		usage()
	}
	if len(os.Args) != 2 {
		usage()
	}

	f, err := os.Create(os.Args[1])
	check(err)
	defer f.Close()

	encoding := NewEncoding()
	enc := NewStreamEncoder(f, encoding)
	check(writeSample(&enc))

	stat, err := f.Stat()
	check(err)
	logger.Infof("wrote %d bytes (%s) to %s", stat.Size(), encoding.String(), os.Args[1])
}
