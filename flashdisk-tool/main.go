package main

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
)

import (
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/timtadh/getopt"
)

import (
	"github.com/timtadh/flashdisk/config"
)

var ErrorCodes map[string]int = map[string]int{
	"usage":   0,
	"failed":  1,
	"opts":    3,
	"badint":  5,
	"badfile": 7,
	"config":  8,
}

var UsageMessage string = "flashdisk-tool --config=<path> <command> [args]"
var ExtendedMessage string = `
flashdisk-tool -- inspect and drive a flash disk described by a TOML file

Global Options
  -h, --help                view this message
  -c, --config=<path>       the disk description (required)
  -v, --verbose             raise the info level by one, repeatable
  --no-color                plain status output
  --commands                list the commands

Commands

  format                    erase every device and start an empty disk
  status                    print the queues and every segment
  dump                      print the full status structure
  compact                   run one compaction
  erase-used                erase the segments waiting on the erase queue
  verify                    check the descriptors against the block map
  read <block> [count]      copy count blocks (default 1) to the output
  write <block>             copy the input to the disk from block on. A
                            short final block is padded with 0xff.

Read and Write Options
  -o, --output=<path>       read writes here (default stdout)
  -i, --input=<path>        write reads from here (default stdin)
`

type Command func(d *config.Disk, cache uint64, args []string, in io.Reader, out io.Writer) error

var Commands = map[string]Command{
	"format":     Format,
	"status":     Status,
	"dump":       Dump,
	"compact":    Compact,
	"erase-used": EraseUsed,
	"verify":     Verify,
	"read":       Read,
	"write":      Write,
}

func Usage(code int) {
	fmt.Fprintln(os.Stderr, UsageMessage)
	if code == 0 {
		fmt.Fprintln(os.Stdout, ExtendedMessage)
		code = ErrorCodes["usage"]
	} else {
		fmt.Fprintln(os.Stderr, "Try -h or --help for help")
	}
	os.Exit(code)
}

func ParseInt(str string) int {
	i, err := strconv.Atoi(str)
	if err != nil || i < 0 {
		fmt.Fprintf(os.Stderr, "Error parsing '%v' expected a non negative int\n", str)
		Usage(ErrorCodes["badint"])
	}
	return i
}

func AssertFile(fname string) string {
	fname = path.Clean(fname)
	fi, err := os.Stat(fname)
	if err != nil && os.IsNotExist(err) {
		return fname
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		Usage(ErrorCodes["badfile"])
	} else if fi.IsDir() {
		fmt.Fprintf(os.Stderr, "Passed in file was a directory, %s\n", fname)
		Usage(ErrorCodes["badfile"])
	}
	return fname
}

func main() {
	args, optargs, err := getopt.GetOpt(
		os.Args[1:],
		"hc:vo:i:",
		[]string{
			"help", "config=", "verbose", "no-color", "commands", "output=", "input=",
		},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		Usage(ErrorCodes["opts"])
	}

	configPath := ""
	outputPath := ""
	inputPath := ""
	verbose := uint32(0)
	for _, oa := range optargs {
		switch oa.Opt() {
		case "-h", "--help":
			Usage(0)
		case "-c", "--config":
			configPath = AssertFile(oa.Arg())
		case "-v", "--verbose":
			verbose++
		case "--no-color":
			color.NoColor = true
		case "-o", "--output":
			outputPath = AssertFile(oa.Arg())
		case "-i", "--input":
			inputPath = AssertFile(oa.Arg())
		case "--commands":
			fmt.Fprintf(os.Stderr, "Commands\n")
			for name := range Commands {
				fmt.Fprintf(os.Stderr, "  %v\n", name)
			}
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown flag '%v'\n", oa.Opt())
			Usage(ErrorCodes["opts"])
		}
	}

	if len(args) <= 0 {
		fmt.Fprintln(os.Stderr, "Must supply a command, try --help")
		Usage(ErrorCodes["opts"])
	}
	cmd, has := Commands[args[0]]
	if !has {
		fmt.Fprintf(os.Stderr, "Command '%v' not supported. Try --commands.\n", args[0])
		Usage(ErrorCodes["opts"])
	}
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "Must supply a config, try --help")
		Usage(ErrorCodes["opts"])
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ErrorCodes["config"])
	}
	cfg.InfoLevel += verbose

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.DebugLevel)
	d, err := cfg.Open(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ErrorCodes["config"])
	}

	var in io.Reader = os.Stdin
	if inputPath != "" {
		fin, err := os.Open(inputPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			d.Close()
			Usage(ErrorCodes["badfile"])
		}
		defer fin.Close()
		in = fin
	}
	var out io.WriteCloser = os.Stdout
	if outputPath != "" {
		out, err = os.Create(outputPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			d.Close()
			Usage(ErrorCodes["badfile"])
		}
	}
	defer out.Close()

	cmdErr := cmd(d, cfg.CacheSize, args[1:], in, out)
	if err := d.Close(); err != nil && cmdErr == nil {
		cmdErr = err
	}
	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, cmdErr)
		out.Close()
		os.Exit(ErrorCodes["failed"])
	}
}
