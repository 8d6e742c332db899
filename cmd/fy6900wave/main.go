// Command fy6900wave uploads a user waveform file into an FY6900 slot.
//
// The input file is whitespace separated unsigned integers, one buffer of
// exactly 8192 samples in [0,16383], or any integers at all with -normalize.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/snksoft/crc"
	"github.com/theckman/yacspin"

	"github.com/nasa-jpl/fygen/fy6900"
)

var (
	port      = flag.String("port", "/dev/ttyUSB0", "serial port the generator is attached to")
	slot      = flag.Int("slot", 0, "user slot to upload into, 0-63")
	normalize = flag.Bool("normalize", false, "rescale the samples so min->0 and max->16383")
	retries   = flag.Int("retries", 0, "override the per-operation attempt count")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: fy6900wave [options] <samplefile>\n\nOptions:\n")
	flag.PrintDefaults()
}

// loadSamples reads whitespace separated integers from path
func loadSamples(path string) ([]uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var samples []uint16
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		v, err := strconv.ParseUint(scanner.Text(), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %v", len(samples), err)
		}
		samples = append(samples, uint16(v))
	}
	return samples, scanner.Err()
}

// digest is a CRC16/XMODEM over the big-endian image of the samples, for
// the operator's log book; re-uploading the same file prints the same value
func digest(samples []uint16) uint64 {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.BigEndian.PutUint16(buf[2*i:], s)
	}
	return crc.CalculateCRC(crc.XMODEM, buf)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	samples, err := loadSamples(flag.Arg(0))
	if err != nil {
		log.Fatal("reading samples: ", err)
	}

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " fy6900",
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopFailCharacter: "✗",
		StopColors:        []string{"fgGreen"},
		StopFailColors:    []string{"fgRed"}})
	if err != nil {
		log.Fatal(err)
	}

	gen := fy6900.NewFunctionGenerator(*port)
	if *retries > 0 {
		gen.Retries = *retries
	}

	spinner.Start()
	spinner.Message("connecting to " + *port)
	if err := gen.Connect(); err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		os.Exit(1)
	}
	defer gen.Close()

	spinner.Message(fmt.Sprintf("uploading %d samples to slot %d", len(samples), *slot))
	if err := gen.UploadWaveform(*slot, samples, *normalize); err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		os.Exit(1)
	}
	spinner.StopMessage(fmt.Sprintf("%s S/N %s slot %d, input crc16/xmodem %04X",
		gen.Model(), gen.SerialNumber(), *slot, digest(samples)))
	spinner.Stop()
}
