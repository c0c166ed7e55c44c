/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package errs

import (
	"errors"
	"fmt"
)

// Error is a coded error: every failure path in the core packages returns
// one of these instead of a bare error string, so callers can branch on
// Code() rather than parsing Error().
type Error interface {
	error
	Code() Code
	Parent() error
}

type ers struct {
	code   Code
	msg    string
	parent error
}

// New builds an Error with the given code. msg overrides the code's
// registered message when non-empty.
func New(code Code, msg string) Error {
	if msg == "" {
		msg = code.String()
	}
	return &ers{code: code, msg: msg}
}

// Wrap builds an Error with the given code, chaining parent as the cause.
func Wrap(code Code, parent error) Error {
	if parent == nil {
		return New(code, "")
	}
	return &ers{code: code, msg: code.String(), parent: parent}
}

func (e *ers) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

func (e *ers) Parent() error {
	if e == nil {
		return nil
	}
	return e.parent
}

func (e *ers) Error() string {
	if e == nil {
		return CodeUnknown.String()
	}
	if e.parent != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.parent.Error())
	}
	return e.msg
}

func (e *ers) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.parent
}

// Is reports whether err carries the same Code as e. Matches the stdlib
// errors.Is contract so errors.Is(err, errs.New(errs.CodeQueueFull, "")) works.
func (e *ers) Is(err error) bool {
	if e == nil || err == nil {
		return false
	}
	if o, ok := err.(*ers); ok {
		return o.code == e.code
	}
	return false
}

// CodeOf extracts the Code from err if it is (or wraps) an Error, else
// CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return CodeUnknown
}
