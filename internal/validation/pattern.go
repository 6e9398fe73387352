// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package validation

import (
	"fmt"
	"regexp"
)

// patternValidator checks a value against a compiled regular expression
type patternValidator struct {
	field   string
	pattern *regexp.Regexp
	value   string
}

var _ Validator = (*patternValidator)(nil)

// NewPatternValidator creates an instance of the validator.
// The pattern must be compiled by the caller, typically once at package level.
func NewPatternValidator(field string, pattern *regexp.Regexp, value string) Validator {
	return &patternValidator{
		field:   field,
		pattern: pattern,
		value:   value,
	}
}

// Validate executes the validation
func (x *patternValidator) Validate() error {
	if !x.pattern.MatchString(x.value) {
		return fmt.Errorf("the [%s] value=(%s) does not match %s", x.field, x.value, x.pattern.String())
	}
	return nil
}
