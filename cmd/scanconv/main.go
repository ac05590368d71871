// Command scanconv converts scans between formats. Format A scans can be
// rewritten as Format B; B and C scans can be rewritten in either writable
// format. Movie frames are selected with -frame.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spm-spots/internal/format"
	"spm-spots/internal/scan"
	"spm-spots/internal/version"
)

func main() {
	out := flag.String("out", "", "Output path (default: input with .stp extension)")
	frame := flag.Int("frame", 0, "Frame index to extract from movie scans")
	info := flag.Bool("info", false, "Print the header of each input and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("scanconv"))
		return
	}
	if flag.NArg() == 0 {
		fmt.Println("Usage: scanconv [-out path] [-frame 0] [-info] <scan files...>")
		os.Exit(1)
	}

	if *info {
		for _, path := range flag.Args() {
			ds, err := format.Open(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", path, err)
				os.Exit(1)
			}
			printHeader(path, ds)
		}
		return
	}

	if *out != "" && flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Failed to convert: -out needs a single input")
		os.Exit(1)
	}
	for _, src := range flag.Args() {
		dst := *out
		if dst == "" {
			dst = strings.TrimSuffix(src, filepath.Ext(src)) + format.ExtB
		}
		if dst == src {
			fmt.Fprintf(os.Stderr, "Failed to convert %s: output would overwrite input\n", src)
			os.Exit(1)
		}
		if err := format.Convert(src, dst, *frame); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to convert %s: %v\n", src, err)
			os.Exit(1)
		}
		fmt.Printf("%s -> %s\n", src, dst)
	}
}

func printHeader(path string, ds *scan.Dataset) {
	h := ds.Header
	fmt.Printf("%s (%s)\n", path, ds.Format())
	fmt.Printf("  Size: %d x %d px, %d frame(s)\n", h.Cols, h.Rows, h.FrameCount)
	fmt.Printf("  Scan: %.3f x %.3f nm, offset (%.3f, %.3f) nm\n", h.XSizeNm, h.YSizeNm, h.XOffsetNm, h.YOffsetNm)
	fmt.Printf("  Z gain: %g, mode: %s\n", h.ZGain, h.Mode)
}
