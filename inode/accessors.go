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

import "fmt"

// DirectoryOf returns ino's directory view, or ErrUnsupportedVariant
// when ino is not a directory encoding.
func DirectoryOf(ino INode) (DirectoryINode, error) {
	if d, ok := ino.(DirectoryINode); ok {
		return d, nil
	}
	return nil, fmt.Errorf("%s carries no directory fields: %w", ino.Type(), ErrUnsupportedVariant)
}

// FileOf returns ino's regular file view, or ErrUnsupportedVariant
// when ino is not a file encoding.
func FileOf(ino INode) (FileINode, error) {
	if f, ok := ino.(FileINode); ok {
		return f, nil
	}
	return nil, fmt.Errorf("%s carries no file fields: %w", ino.Type(), ErrUnsupportedVariant)
}

// SymlinkOf returns ino's symlink view, or ErrUnsupportedVariant when
// ino is not a symlink encoding.
func SymlinkOf(ino INode) (SymlinkINode, error) {
	if s, ok := ino.(SymlinkINode); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%s carries no symlink fields: %w", ino.Type(), ErrUnsupportedVariant)
}

// DeviceOf returns ino's device view, or ErrUnsupportedVariant when
// ino is not a block or character device encoding.
func DeviceOf(ino INode) (DeviceINode, error) {
	if d, ok := ino.(DeviceINode); ok {
		return d, nil
	}
	return nil, fmt.Errorf("%s carries no device fields: %w", ino.Type(), ErrUnsupportedVariant)
}

// IPCOf returns ino's fifo/socket view, or ErrUnsupportedVariant when
// ino is neither.
func IPCOf(ino INode) (IPCINode, error) {
	if i, ok := ino.(IPCINode); ok {
		return i, nil
	}
	return nil, fmt.Errorf("%s is not an ipc inode: %w", ino.Type(), ErrUnsupportedVariant)
}
