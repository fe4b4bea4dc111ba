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
	"text/tabwriter"
	"time"

	"github.com/containerd/log"
	"github.com/opencontainers/go-digest"
	"github.com/urfave/cli/v2"

	"github.com/containerd/go-squashfs/superblock"
)

var infoCommand = &cli.Command{
	Name:      "info",
	Usage:     "print the superblock of an image",
	ArgsUsage: "<image>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "digest",
			Usage: "Also compute the content digest of the image",
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

		tw := tabwriter.NewWriter(cliContext.App.Writer, 1, 8, 1, ' ', 0)
		fmt.Fprintf(tw, "VERSION\t%d.%d\n", sb.Major, sb.Minor)
		fmt.Fprintf(tw, "COMPRESSION\t%s\n", sb.Compression)
		fmt.Fprintf(tw, "BLOCK SIZE\t%d\n", sb.BlockSize)
		fmt.Fprintf(tw, "FLAGS\t0x%04x\n", uint16(sb.Flags))
		fmt.Fprintf(tw, "INODES\t%d\n", sb.InodeCount)
		fmt.Fprintf(tw, "FRAGMENTS\t%d\n", sb.FragmentCount)
		fmt.Fprintf(tw, "IDS\t%d\n", sb.IDCount)
		fmt.Fprintf(tw, "MODIFIED\t%s\n", time.Unix(int64(sb.ModTime), 0).UTC().Format(time.RFC3339))
		fmt.Fprintf(tw, "BYTES USED\t%d\n", sb.BytesUsed)
		fmt.Fprintf(tw, "ROOT INODE\t%s\n", sb.RootInode)
		fmt.Fprintf(tw, "INODE TABLE\t%d\n", sb.InodeTableStart)
		fmt.Fprintf(tw, "DIRECTORY TABLE\t%d\n", sb.DirectoryTableStart)
		fmt.Fprintf(tw, "ID TABLE\t%d\n", sb.IDTableStart)
		printTable(tw, "FRAGMENT TABLE", sb.FragmentTableStart)
		printTable(tw, "EXPORT TABLE", sb.ExportTableStart)
		printTable(tw, "XATTR ID TABLE", sb.XattrIDTableStart)

		if cliContext.Bool("digest") {
			if _, err := f.Seek(0, 0); err != nil {
				return err
			}
			dgst, err := digest.Canonical.FromReader(f)
			if err != nil {
				return fmt.Errorf("digesting %s: %w", path, err)
			}
			fmt.Fprintf(tw, "DIGEST\t%s\n", dgst)
		}

		log.G(cliContext.Context).WithField("image", path).Debug("superblock decoded")
		return tw.Flush()
	},
}

func printTable(tw *tabwriter.Writer, label string, start uint64) {
	if start == superblock.NoTable {
		fmt.Fprintf(tw, "%s\t-\n", label)
		return
	}
	fmt.Fprintf(tw, "%s\t%d\n", label, start)
}
