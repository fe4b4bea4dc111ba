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

// Package binutils renders binary structure fields as fixed-width
// labeled lines for diagnostics. Output is deterministic for identical
// input so dumps can be diffed against reference images.
package binutils

import (
	"fmt"
	"strings"
)

// DumpUint writes one "label: value" line with the label padded to
// width characters.
func DumpUint(b *strings.Builder, width int, label string, value uint64) {
	fmt.Fprintf(b, "  %-*s %d\n", width+1, label+":", value)
}

// DumpInt is DumpUint for signed values.
func DumpInt(b *strings.Builder, width int, label string, value int64) {
	fmt.Fprintf(b, "  %-*s %d\n", width+1, label+":", value)
}

// DumpHex writes the value in both hexadecimal and decimal form.
func DumpHex(b *strings.Builder, width int, label string, value uint64) {
	fmt.Fprintf(b, "  %-*s 0x%x (%d)\n", width+1, label+":", value, value)
}

// DumpOctal writes the value zero-padded to four octal digits, the
// conventional rendering for permission masks.
func DumpOctal(b *strings.Builder, width int, label string, value uint64) {
	fmt.Fprintf(b, "  %-*s 0%04o\n", width+1, label+":", value)
}

// DumpString writes a quoted string value.
func DumpString(b *strings.Builder, width int, label, value string) {
	fmt.Fprintf(b, "  %-*s %q\n", width+1, label+":", value)
}

// DumpUints writes a slice of values as a bracketed list, eight per
// line, continuation lines indented under the first value.
func DumpUints(b *strings.Builder, width int, label string, values []uint32) {
	fmt.Fprintf(b, "  %-*s [", width+1, label+":")
	for i, v := range values {
		if i > 0 {
			if i%8 == 0 {
				fmt.Fprintf(b, "\n  %-*s  ", width+1, "")
			} else {
				b.WriteString(" ")
			}
		}
		fmt.Fprintf(b, "%d", v)
	}
	b.WriteString("]\n")
}
