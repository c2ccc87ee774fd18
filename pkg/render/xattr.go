// Copyright 2024 Google LLC All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package render

import (
	"strings"

	"archive/tar"

	"golang.org/x/sys/unix"
)

const paxXattrPrefix = "SCHILY.xattr."

// setXattrs restores the extended attributes tar recorded for an
// entry as PAX records, e.g. "SCHILY.xattr.user.foo" -> value. Entries
// with no PAX xattr records are left untouched. A platform or
// filesystem that rejects a particular xattr (ENOTSUP, EPERM) is not
// treated as fatal: the file itself was still unpacked correctly.
func setXattrs(path string, header *tar.Header) error {
	for k, v := range header.PAXRecords {
		name := strings.TrimPrefix(k, paxXattrPrefix)
		if name == k {
			continue // not a xattr record
		}
		if err := unix.Lsetxattr(path, name, []byte(v), 0); err != nil {
			if err == unix.ENOTSUP || err == unix.EPERM {
				continue
			}
			return err
		}
	}
	return nil
}
