package utils

import (
	"bufio"
	"errors"
	"io"
	"os"
)

type Line struct {
	Num          int
	Bytes        []byte
	WasTruncated bool
}

// ScanJSONL calls onLine for every non empty line of a .jsonl file. Lines over
// maxLineBytes are reported as truncated with no bytes; a maxLineBytes of 0
// keeps every line whole.
func ScanJSONL(path string, maxLineBytes int, onLine func(Line) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	reader := bufio.NewReaderSize(file, 64*1024)

	var (
		num       int
		buf       []byte
		truncated bool
	)
	for {
		// ReadLine hands out a line in buffer sized fragments.
		part, isPrefix, err := reader.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if !truncated {
			if maxLineBytes > 0 && len(buf)+len(part) > maxLineBytes {
				truncated = true
				buf = nil
			} else {
				buf = append(buf, part...)
			}
		}
		if isPrefix {
			continue
		}

		num++
		line := Line{Num: num, Bytes: buf, WasTruncated: truncated}
		buf, truncated = nil, false
		if len(line.Bytes) == 0 && !line.WasTruncated {
			continue
		}

		if err := onLine(line); err != nil {
			return err
		}
	}
}
