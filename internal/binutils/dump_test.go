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

package binutils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDumpLines(t *testing.T) {
	var b strings.Builder
	DumpUint(&b, 10, "nlink", 2)
	DumpInt(&b, 10, "mtime", -1)
	DumpHex(&b, 10, "xattr", 0xffffffff)
	DumpOctal(&b, 10, "mode", 0o755)
	DumpString(&b, 10, "target", "../target")

	assert.Equal(t,
		"  nlink:      2\n"+
			"  mtime:      -1\n"+
			"  xattr:      0xffffffff (4294967295)\n"+
			"  mode:       00755\n"+
			"  target:     \"../target\"\n",
		b.String())
}

func TestDumpUintsWraps(t *testing.T) {
	var b strings.Builder
	DumpUints(&b, 6, "sizes", []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	assert.Len(t, lines, 2, "eight values per line")
	assert.Equal(t, "  sizes:  [1 2 3 4 5 6 7 8", lines[0])
	assert.Equal(t, "           9 10]", lines[1])

	b.Reset()
	DumpUints(&b, 6, "sizes", nil)
	assert.Equal(t, "  sizes:  []\n", b.String())
}
