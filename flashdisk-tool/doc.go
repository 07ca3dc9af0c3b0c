/*
flashdisk-tool -- inspect and drive a flash disk from the command line.

The disk is described by a TOML file (see the config package). Devices
with an image are opened from, or created as, files next to the config;
devices without one live in memory for the length of the command.

How to install

    $ go install github.com/timtadh/flashdisk/flashdisk-tool

Examples

    $ flashdisk-tool -c disk.toml format
    $ echo hello | flashdisk-tool -c disk.toml write 0
    $ flashdisk-tool -c disk.toml read 0 | head -c 5
    $ flashdisk-tool -c disk.toml -v status
    $ flashdisk-tool -c disk.toml dump

Commands

    format, status, dump, compact, erase-used, verify, read, write

Run with --help for the options of each.
*/
package main
