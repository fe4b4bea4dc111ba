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

package inode

// simplifier is implemented by the extended variants that can collapse
// themselves to a basic encoding.
type simplifier interface {
	simplify() INode
}

// Simplify returns the cheapest encoding of ino: an extended inode
// whose extended fields carry no information (no xattrs, every value
// within the basic field widths) is replaced by its basic equivalent.
// Anything else, including inodes that are already basic, is returned
// unchanged. The result shares no serialization state with the input,
// but slices such as the file block-length table are shared.
func Simplify(ino INode) INode {
	if s, ok := ino.(simplifier); ok {
		return s.simplify()
	}
	return ino
}
