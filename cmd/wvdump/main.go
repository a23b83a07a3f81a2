// wvdump opens a WavPack file and prints a summary of its stream
// format and block-level accessor state, in the spirit of the
// teacher's go-metaflac command.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/pkg/errors"

	"github.com/mewkiz/wavpack/unpack"
)

var flagWvc string

func init() {
	flag.StringVar(&flagWvc, "wvc", "", "optional path to a paired .wvc correction file")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: wvdump [OPTION]... FILE...")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	for _, path := range flag.Args() {
		if err := dump(path); err != nil {
			log.Fatalln(err)
		}
	}
}

func dump(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "wvdump: open %q", path)
	}
	defer f.Close()

	var wvc io.ReadSeeker
	if flagWvc != "" {
		wvcFile, err := os.Open(flagWvc)
		if err != nil {
			return errors.Wrapf(err, "wvdump: open correction file %q", flagWvc)
		}
		defer wvcFile.Close()
		wvc = wvcFile
	}

	u, err := unpack.OpenInput(f, path, wvc, flagWvc, 0)
	if err != nil {
		return errors.Wrapf(err, "wvdump: %q", path)
	}
	defer u.CloseInput()

	fmt.Printf("%s:\n", path)
	fmt.Printf("  sample_rate:     %d\n", u.SampleRate())
	fmt.Printf("  bits_per_sample: %d\n", u.BitsPerSample())
	fmt.Printf("  num_channels:    %d\n", u.NumChannels())
	fmt.Printf("  channel_mask:    0x%x\n", u.ChannelMask())
	fmt.Printf("  num_samples:     %d\n", u.NumSamples())
	if sum, ok := u.MD5(); ok {
		fmt.Printf("  md5:             %x\n", sum)
	}

	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: u.NumChannels(), SampleRate: int(u.SampleRate())}}
	var total uint64
	for {
		n, err := u.UnpackSamples(buf, 65536)
		if err != nil {
			return errors.Wrapf(err, "wvdump: %q: unpack_samples", path)
		}
		total += uint64(n)
		if n == 0 {
			break
		}
	}
	fmt.Printf("  decoded_samples: %d\n", total)
	fmt.Printf("  lossy_blocks:    %d\n", u.LossyBlockCount())
	fmt.Printf("  crc_errors:      %d\n", u.CRCErrorCount())
	return nil
}
