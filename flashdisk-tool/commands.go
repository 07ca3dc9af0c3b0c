package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

import (
	"github.com/timtadh/flashdisk"
	"github.com/timtadh/flashdisk/config"
	"github.com/timtadh/flashdisk/errors"
	"github.com/timtadh/flashdisk/file"
	"github.com/timtadh/flashdisk/flash"
)

func noArgs(name string, args []string) error {
	if len(args) != 0 {
		return errors.Errorf("%v takes no arguments, got %v", name, args)
	}
	return nil
}

func blockArg(args []string, i int) (uint32, error) {
	n, err := strconv.ParseUint(args[i], 10, 32)
	if err != nil {
		return 0, errors.Errorf("expected a block number got '%v'", args[i])
	}
	return uint32(n), nil
}

func Format(d *config.Disk, cache uint64, args []string, in io.Reader, out io.Writer) error {
	if err := noArgs("format", args); err != nil {
		return err
	}
	if err := d.EraseDisk(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "formatted %d blocks of %d bytes\n", d.BlockCount(), d.BlockSize())
	return err
}

var queueColors = map[byte]*color.Color{
	'A': color.New(color.FgGreen),
	'U': color.New(color.FgYellow),
	'E': color.New(color.FgCyan),
	'F': color.New(color.FgRed, color.Bold),
	'-': color.New(color.FgMagenta),
}

// Status prints the disk status with segment lines colored by the
// queue they are on.
func Status(d *config.Disk, cache uint64, args []string, in io.Reader, out io.Writer) error {
	if err := noArgs("status", args); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := d.PrintStatus(&buf); err != nil {
		return err
	}
	header := color.New(color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	s := bufio.NewScanner(&buf)
	for first := true; s.Scan(); first = false {
		line := s.Text()
		var err error
		switch {
		case first:
			_, err = header.Fprintln(out, line)
		case strings.Contains(line, "MISSING"):
			_, err = bad.Fprintln(out, line)
		case len(line) > 7 && strings.HasPrefix(line, "  ") && line[5] == ' ' && queueColors[line[6]] != nil:
			_, err = queueColors[line[6]].Fprintln(out, line)
		default:
			_, err = fmt.Fprintln(out, line)
		}
		if err != nil {
			return err
		}
	}
	return s.Err()
}

func Dump(d *config.Disk, cache uint64, args []string, in io.Reader, out io.Writer) error {
	if err := noArgs("dump", args); err != nil {
		return err
	}
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	cfg.Fdump(out, d.Status())
	return nil
}

func Compact(d *config.Disk, cache uint64, args []string, in io.Reader, out io.Writer) error {
	if err := noArgs("compact", args); err != nil {
		return err
	}
	before := d.Monitor()
	if err := d.Compact(); err != nil {
		return err
	}
	after := d.Monitor()
	_, err := fmt.Fprintf(out, "used segments %d -> %d, used pages %d -> %d\n",
		before.SegsUsed, after.SegsUsed, before.PagesUsed, after.PagesUsed)
	return err
}

func EraseUsed(d *config.Disk, cache uint64, args []string, in io.Reader, out io.Writer) error {
	if err := noArgs("erase-used", args); err != nil {
		return err
	}
	waiting := d.Monitor().SegsErase
	if err := d.EraseUsed(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "erased %d segments\n", waiting-d.Monitor().SegsErase)
	return err
}

func Verify(d *config.Disk, cache uint64, args []string, in io.Reader, out io.Writer) error {
	if err := noArgs("verify", args); err != nil {
		return err
	}
	if err := d.Verify(); err != nil {
		return err
	}
	_, err := color.New(color.FgGreen).Fprintln(out, "ok")
	return err
}

// Read copies blocks to out.
func Read(d *config.Disk, cache uint64, args []string, in io.Reader, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.Errorf("read takes <block> [count]")
	}
	start, err := blockArg(args, 0)
	if err != nil {
		return err
	}
	count := uint32(1)
	if len(args) == 2 {
		if count, err = blockArg(args, 1); err != nil {
			return err
		}
	}
	if uint64(start)+uint64(count) > uint64(d.BlockCount()) {
		return errors.Kindf(errors.ErrOutOfRange, "blocks %d+%d of %d", start, count, d.BlockCount())
	}
	return flashdisk.Do(
		func() (flashdisk.Iterator, error) {
			return flashdisk.Blocks(d, start, start+count), nil
		},
		func(block uint32, data []byte) error {
			_, err := out.Write(data)
			return err
		})
}

// Write copies in to the disk starting at a block. Writes go through
// an LRU cache when the config asks for one.
func Write(d *config.Disk, cache uint64, args []string, in io.Reader, out io.Writer) error {
	if len(args) != 1 {
		return errors.Errorf("write takes <block>")
	}
	start, err := blockArg(args, 0)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	size := int(d.BlockSize())
	if rem := len(data) % size; rem != 0 {
		pad := make([]byte, size-rem)
		flash.Fill(pad)
		data = append(data, pad...)
	}
	c := file.NewLRUCache(d, cache)
	if err := flashdisk.WriteBlocks(c, start, data); err != nil {
		return err
	}
	if err := c.Persist(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "wrote %d blocks from %d\n", len(data)/size, start)
	return err
}
