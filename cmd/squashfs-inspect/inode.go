/*
   Copyright The containerd Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package main

import (
	"fmt"
	"os"

	"github.com/containerd/log"
	"github.com/urfave/cli/v2"

	"github.com/containerd/go-squashfs/inode"
	"github.com/containerd/go-squashfs/metadata"
	"github.com/containerd/go-squashfs/superblock"
)

var inodeCommand = &cli.Command{
	Name:      "inode",
	Usage:     "decode and dump one inode record",
	ArgsUsage: "<image>",
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:  "ref",
			Usage: "Packed metadata reference of the record; defaults to the root inode",
		},
		&cli.IntFlag{
			Name:  "width",
			Usage: "Label width of the dump output (0 selects the variant default)",
		},
	},
	Action: func(cliContext *cli.Context) error {
		path := cliContext.Args().First()
		if path == "" {
			return fmt.Errorf("image path required")
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		sb, err := superblock.Read(f)
		if err != nil {
			return fmt.Errorf("reading superblock of %s: %w", path, err)
		}
		codec, err := sb.Codec()
		if err != nil {
			return err
		}

		ref := sb.RootInode
		if cliContext.IsSet("ref") {
			ref = metadata.ParseReference(cliContext.Uint64("ref"))
		}
		log.G(cliContext.Context).WithFields(log.Fields{
			"image": path,
			"ref":   ref.String(),
		}).Debug("decoding inode record")

		// The inode table ends where the directory table starts.
		size := int64(sb.DirectoryTableStart) - int64(sb.InodeTableStart)
		mr := metadata.NewReader(f, int64(sb.InodeTableStart), size, codec)
		if err := mr.Seek(ref); err != nil {
			return err
		}
		ino, err := inode.Read(mr, sb)
		if err != nil {
			return fmt.Errorf("decoding inode at %s: %w", ref, err)
		}

		fmt.Fprintln(cliContext.App.Writer, inode.Dump(ino, cliContext.Int("width")))
		return nil
	},
}
