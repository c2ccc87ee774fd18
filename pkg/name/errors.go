// Copyright 2018 Google LLC All Rights Reserved.
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

package name

import "fmt"

// ErrBadName is returned when a reference string doesn't parse.
type ErrBadName struct {
	msg string
}

func (e *ErrBadName) Error() string {
	return e.msg
}

func newErrBadName(format string, args ...interface{}) *ErrBadName {
	return &ErrBadName{fmt.Sprintf(format, args...)}
}
