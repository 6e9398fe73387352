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
	"strings"
	"time"
)

type emptyStringValidator struct {
	field string
	value string
}

var _ Validator = (*emptyStringValidator)(nil)

// NewEmptyStringValidator creates a validator that fails on blank values
func NewEmptyStringValidator(field, value string) Validator {
	return &emptyStringValidator{field: field, value: value}
}

// Validate executes the validation
func (v *emptyStringValidator) Validate() error {
	if strings.TrimSpace(v.value) == "" {
		return fmt.Errorf("the [%s] is required", v.field)
	}
	return nil
}

type durationValidator struct {
	field string
	value time.Duration
}

var _ Validator = (*durationValidator)(nil)

// NewPositiveDurationValidator creates a validator that fails on zero or negative durations
func NewPositiveDurationValidator(field string, value time.Duration) Validator {
	return &durationValidator{field: field, value: value}
}

// Validate executes the validation
func (v *durationValidator) Validate() error {
	if v.value <= 0 {
		return fmt.Errorf("the [%s] must be greater than zero, got %s", v.field, v.value)
	}
	return nil
}
