/*
Flash Disk

A block device over raw NOR style flash. Flash can only clear bits and
must be erased a whole segment at a time, so a block cannot be
rewritten in place. The fdisk package maps logical blocks onto flash
pages, moves a block to a fresh page on every write and reclaims
superseded pages by compacting segments and erasing them.

The major components of this project:

1. flash - the topology of a flash device, the operations a disk needs
from it, and Mem, a RAM backed simulation.

2. fdisk - the flash translation layer. Page descriptors with a CRC16
per page live in a header at the start of every segment. The block map
and the segment queues are rebuilt from them on every open.

3. fmap - a flash image in a memory mapped file.

4. file - a flash image in a plain file using positioned reads and
writes, and an LRU write back cache for any block device.

5. config - loads the disk geometry, devices and flags from TOML.

6. background - runs erase and compaction passes on a timer.

7. errors - the error kinds the disk reports, each carrying a stack
trace.

8. flashdisk-tool - a command line tool for images.

*/
package flashdisk
