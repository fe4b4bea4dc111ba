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

// squashfs-inspect decodes the superblock and individual inode records
// of a SquashFS image for debugging and differential testing against
// reference images.
package main

import (
	"fmt"
	"os"

	"github.com/containerd/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "squashfs-inspect",
		Usage: "inspect SquashFS image metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set the logging level [trace, debug, info, warn, error, fatal, panic]",
			},
		},
		Before: func(cliContext *cli.Context) error {
			if level := cliContext.String("log-level"); level != "" {
				return log.SetLevel(level)
			}
			return nil
		},
		Commands: []*cli.Command{
			infoCommand,
			inodeCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "squashfs-inspect: %s\n", err)
		os.Exit(1)
	}
}
