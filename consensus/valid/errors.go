// Copyright 2021 The go-aion Authors
// This file is part of the go-aion library.
//
// The go-aion library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-aion library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-aion library. If not, see <http://www.gnu.org/licenses/>.

package valid

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFatal marks errors that say nothing about the validity of a header:
	// misconfigured rule sets or rules handed a header variant they can not
	// judge. Rejections never wrap it.
	ErrFatal = errors.New("fatal validation error")

	// ErrWrongVariant is returned by a rule handed a header variant it does
	// not apply to.
	ErrWrongVariant = fmt.Errorf("%w: wrong header variant", ErrFatal)

	// ErrNoRules is returned for a header whose seal type has no rule list.
	ErrNoRules = fmt.Errorf("%w: no rules for seal type", ErrFatal)
)

// RuleError is a single rejection reported by a rule.
type RuleError struct {
	Rule    string
	Message string
}

func (e RuleError) String() string {
	return e.Rule + ": " + e.Message
}

// RuleErrors collects the rejections of one validation pass in order.
type RuleErrors []RuleError

func (errs *RuleErrors) add(rule string, format string, args ...interface{}) {
	*errs = append(*errs, RuleError{Rule: rule, Message: fmt.Sprintf(format, args...)})
}

// String formats the errors one per line.
func (errs RuleErrors) String() string {
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// ValidationError is returned when a header is rejected by a rule.
type ValidationError struct {
	Rule   string
	Errors RuleErrors
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "header rejected by " + e.Rule
	}
	return e.Errors.String()
}

func wrongVariant(rule string, want string, have interface{}) error {
	return fmt.Errorf("%w: %s expects %s, have %T", ErrWrongVariant, rule, want, have)
}
