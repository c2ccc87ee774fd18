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

// Package apierror parses the structured error body a registry returns
// on a non-2xx response: {"errors": [{"code","message","detail"}]},
// per the OCI distribution spec's errcode registry.
package apierror

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pnxs/docker-registry-go/internal/redact"
)

// ErrorCode is the set of registry-standard API error codes.
type ErrorCode string

const (
	BlobUnknownErrorCode         ErrorCode = "BLOB_UNKNOWN"
	BlobUploadInvalidErrorCode   ErrorCode = "BLOB_UPLOAD_INVALID"
	BlobUploadUnknownErrorCode   ErrorCode = "BLOB_UPLOAD_UNKNOWN"
	DigestInvalidErrorCode       ErrorCode = "DIGEST_INVALID"
	ManifestBlobUnknownErrorCode ErrorCode = "MANIFEST_BLOB_UNKNOWN"
	ManifestInvalidErrorCode     ErrorCode = "MANIFEST_INVALID"
	ManifestUnknownErrorCode     ErrorCode = "MANIFEST_UNKNOWN"
	ManifestUnverifiedErrorCode  ErrorCode = "MANIFEST_UNVERIFIED"
	NameInvalidErrorCode         ErrorCode = "NAME_INVALID"
	NameUnknownErrorCode         ErrorCode = "NAME_UNKNOWN"
	SizeInvalidErrorCode         ErrorCode = "SIZE_INVALID"
	TagInvalidErrorCode          ErrorCode = "TAG_INVALID"
	UnauthorizedErrorCode        ErrorCode = "UNAUTHORIZED"
	DeniedErrorCode              ErrorCode = "DENIED"
	UnsupportedErrorCode         ErrorCode = "UNSUPPORTED"
	TooManyRequestsErrorCode     ErrorCode = "TOOMANYREQUESTS"
)

// Diagnostic is a single error, per the distribution spec's error
// response body shape: {"errors": [{"code","message","detail"}]}.
type Diagnostic struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message,omitempty"`
	Detail  interface{} `json:"detail,omitempty"`
}

// Error implements error by wrapping the structured registry error
// response, falling back to a generic message for non-conforming
// bodies. A transport error always carries a status code and, if
// present, structured diagnostics.
type Error struct {
	Errors     []Diagnostic
	StatusCode int
	rawBody    string

	// The request that produced the response; Error prefixes its method
	// and redacted URL.
	request *http.Request
}

// Check that Error implements error.
var _ error = (*Error)(nil)

func (e *Error) Error() string {
	prefix := ""
	if e.request != nil {
		prefix = fmt.Sprintf("%s %s: ", e.request.Method, redact.URL(e.request.URL))
	}
	switch len(e.Errors) {
	case 0:
		if e.rawBody != "" {
			return fmt.Sprintf("%sunexpected status code %d %s: %s", prefix, e.StatusCode, http.StatusText(e.StatusCode), e.rawBody)
		}
		return fmt.Sprintf("%sunexpected status code %d %s", prefix, e.StatusCode, http.StatusText(e.StatusCode))
	case 1:
		return e.Errors[0].String()
	default:
		var errors []string
		for _, d := range e.Errors {
			errors = append(errors, d.String())
		}
		return fmt.Sprintf("multiple errors returned: %s", strings.Join(errors, "; "))
	}
}

func (d Diagnostic) String() string {
	msg := fmt.Sprintf("%s: %s", d.Code, d.Message)
	if d.Detail != nil {
		msg = fmt.Sprintf("%s; %v", msg, d.Detail)
	}
	return msg
}

// Temporary reports whether the request that preceded this error can
// be retried.
func (e *Error) Temporary() bool {
	if len(e.Errors) == 0 {
		return e.StatusCode == http.StatusRequestTimeout ||
			e.StatusCode == http.StatusInternalServerError ||
			e.StatusCode == http.StatusBadGateway ||
			e.StatusCode == http.StatusServiceUnavailable ||
			e.StatusCode == http.StatusGatewayTimeout
	}
	for _, d := range e.Errors {
		switch d.Code {
		case BlobUploadInvalidErrorCode, TooManyRequestsErrorCode:
			continue
		default:
			return false
		}
	}
	return true
}

// CheckError returns a structured error if the response's status code
// is not one of the codes provided, and nil otherwise.
func CheckError(resp *http.Response, codes ...int) error {
	for _, code := range codes {
		if resp.StatusCode == code {
			return nil
		}
	}

	if resp.Request != nil && resp.Request.Method == http.MethodHead {
		if resp.Body != nil {
			io.Copy(io.Discard, resp.Body)
		}
		return &Error{
			StatusCode: resp.StatusCode,
			request:    resp.Request,
			rawBody:    "(HEAD responses have no body, use GET for details)",
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	structuredError := &Error{}
	if err := json.Unmarshal(b, structuredError); err == nil && len(structuredError.Errors) > 0 {
		structuredError.StatusCode = resp.StatusCode
		structuredError.request = resp.Request
		return structuredError
	}

	return &Error{
		StatusCode: resp.StatusCode,
		request:    resp.Request,
		rawBody:    string(b),
	}
}
