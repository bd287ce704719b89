package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
)

// Output formats accepted by --format.
const (
	formatAuto  = "auto"
	formatJSON  = "json"
	formatTable = "table"
)

// useTable resolves --format. auto renders tables only on a terminal so piped output
// stays machine readable.
func useTable(format string, w io.Writer) (bool, error) {
	switch format {
	case formatTable:
		return true, nil
	case formatJSON:
		return false, nil
	case formatAuto, "":
		return isTerminal(w), nil
	}
	return false, fmt.Errorf("unknown format %q (want auto, json or table)", format)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
