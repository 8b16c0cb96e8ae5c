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

// Package valid implements the header validation rules of the Aion chain and
// the validators dispatching a header to the rule list of its seal type.
package valid

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/aionnetwork/go-aion/core/types"
)

// HeaderRule validates a header on its own.
type HeaderRule interface {
	Name() string
	Validate(header types.Header, errs *RuleErrors) (bool, error)
}

// ParentRule validates a header against its parent. extra is an optional
// argument forwarded by the validator, such as the stake of the signer.
type ParentRule interface {
	Name() string
	Validate(header, parent types.Header, extra interface{}, errs *RuleErrors) (bool, error)
}

// GrandParentRule validates a header against two ancestors.
type GrandParentRule interface {
	Name() string
	Validate(header, parent, grandParent types.Header, errs *RuleErrors) (bool, error)
}

// GreatGrandParentRule validates a header against three ancestors.
type GreatGrandParentRule interface {
	Name() string
	Validate(header, parent, grandParent, greatGrandParent types.Header, errs *RuleErrors) (bool, error)
}

// BlockHeaderValidator runs the header rules configured for a seal type.
type BlockHeaderValidator struct {
	rules map[types.SealType][]HeaderRule
}

// NewBlockHeaderValidator creates a validator over the given rule lists.
func NewBlockHeaderValidator(rules map[types.SealType][]HeaderRule) *BlockHeaderValidator {
	return &BlockHeaderValidator{rules: rules}
}

// Check returns nil if every rule accepts the header, a *ValidationError for
// the first rule rejecting it, or an error wrapping ErrFatal.
func (v *BlockHeaderValidator) Check(header types.Header) error {
	if header == nil {
		return missing("BlockHeaderValidator", "header")
	}
	rules, ok := v.rules[header.Base().Seal]
	if !ok {
		return noRules(header)
	}
	for _, rule := range rules {
		var errs RuleErrors
		ok, err := rule.Validate(header, &errs)
		if err := outcome(rule.Name(), ok, err, errs); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports whether the header passes every rule, logging the errors
// of a failing rule.
func (v *BlockHeaderValidator) Validate(header types.Header, logger log.Logger) bool {
	return report(v.Check(header), logger)
}

// ParentBlockHeaderValidator runs the parent rules configured for a seal type.
type ParentBlockHeaderValidator struct {
	rules map[types.SealType][]ParentRule
}

// NewParentBlockHeaderValidator creates a validator over the given rule lists.
func NewParentBlockHeaderValidator(rules map[types.SealType][]ParentRule) *ParentBlockHeaderValidator {
	return &ParentBlockHeaderValidator{rules: rules}
}

// Check is the parent arity counterpart of BlockHeaderValidator.Check. extra
// is passed to every rule.
func (v *ParentBlockHeaderValidator) Check(header, parent types.Header, extra interface{}) error {
	switch {
	case header == nil:
		return missing("ParentBlockHeaderValidator", "header")
	case parent == nil:
		return missing("ParentBlockHeaderValidator", "parent")
	}
	rules, ok := v.rules[header.Base().Seal]
	if !ok {
		return noRules(header)
	}
	for _, rule := range rules {
		var errs RuleErrors
		ok, err := rule.Validate(header, parent, extra, &errs)
		if err := outcome(rule.Name(), ok, err, errs); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports whether the header passes every rule against its parent.
func (v *ParentBlockHeaderValidator) Validate(header, parent types.Header, extra interface{}, logger log.Logger) bool {
	return report(v.Check(header, parent, extra), logger)
}

// GrandParentBlockHeaderValidator runs the grandparent rules configured for a
// seal type. The grandparent may only be absent when the parent is a genesis
// header.
type GrandParentBlockHeaderValidator struct {
	rules map[types.SealType][]GrandParentRule
}

// NewGrandParentBlockHeaderValidator creates a validator over the given rule
// lists.
func NewGrandParentBlockHeaderValidator(rules map[types.SealType][]GrandParentRule) *GrandParentBlockHeaderValidator {
	return &GrandParentBlockHeaderValidator{rules: rules}
}

// Check is the grandparent arity counterpart of BlockHeaderValidator.Check.
func (v *GrandParentBlockHeaderValidator) Check(header, parent, grandParent types.Header) error {
	switch {
	case header == nil:
		return missing("GrandParentBlockHeaderValidator", "header")
	case parent == nil:
		return missing("GrandParentBlockHeaderValidator", "parent")
	case grandParent == nil && parent.Base().Number != 0:
		return missing("GrandParentBlockHeaderValidator", "grandparent")
	}
	rules, ok := v.rules[header.Base().Seal]
	if !ok {
		return noRules(header)
	}
	for _, rule := range rules {
		var errs RuleErrors
		ok, err := rule.Validate(header, parent, grandParent, &errs)
		if err := outcome(rule.Name(), ok, err, errs); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports whether the header passes every rule against its
// ancestors.
func (v *GrandParentBlockHeaderValidator) Validate(header, parent, grandParent types.Header, logger log.Logger) bool {
	return report(v.Check(header, parent, grandParent), logger)
}

// GreatGrandParentBlockHeaderValidator runs the great-grandparent rules
// configured for a seal type.
type GreatGrandParentBlockHeaderValidator struct {
	rules map[types.SealType][]GreatGrandParentRule
}

// NewGreatGrandParentBlockHeaderValidator creates a validator over the given
// rule lists.
func NewGreatGrandParentBlockHeaderValidator(rules map[types.SealType][]GreatGrandParentRule) *GreatGrandParentBlockHeaderValidator {
	return &GreatGrandParentBlockHeaderValidator{rules: rules}
}

// Check is the great-grandparent arity counterpart of
// BlockHeaderValidator.Check.
func (v *GreatGrandParentBlockHeaderValidator) Check(header, parent, grandParent, greatGrandParent types.Header) error {
	switch {
	case header == nil:
		return missing("GreatGrandParentBlockHeaderValidator", "header")
	case parent == nil:
		return missing("GreatGrandParentBlockHeaderValidator", "parent")
	case grandParent == nil:
		return missing("GreatGrandParentBlockHeaderValidator", "grandparent")
	case greatGrandParent == nil:
		return missing("GreatGrandParentBlockHeaderValidator", "great grandparent")
	}
	rules, ok := v.rules[header.Base().Seal]
	if !ok {
		return noRules(header)
	}
	for _, rule := range rules {
		var errs RuleErrors
		ok, err := rule.Validate(header, parent, grandParent, greatGrandParent, &errs)
		if err := outcome(rule.Name(), ok, err, errs); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports whether the header passes every rule against its
// ancestors.
func (v *GreatGrandParentBlockHeaderValidator) Validate(header, parent, grandParent, greatGrandParent types.Header, logger log.Logger) bool {
	return report(v.Check(header, parent, grandParent, greatGrandParent), logger)
}

func missing(validator, what string) error {
	return &ValidationError{
		Rule:   validator,
		Errors: RuleErrors{{Rule: validator, Message: what + " is nil"}},
	}
}

func noRules(header types.Header) error {
	return fmt.Errorf("%w %v", ErrNoRules, header.Base().Seal)
}

// outcome turns the result of a single rule into the validator's error.
func outcome(rule string, ok bool, err error, errs RuleErrors) error {
	if err != nil {
		return fmt.Errorf("rule %s: %w", rule, err)
	}
	if ok {
		return nil
	}
	metrics.GetOrRegisterMeter("consensus/valid/rule/"+rule+"/failed", nil).Mark(1)
	if len(errs) == 0 {
		errs.add(rule, "rejected")
	}
	return &ValidationError{Rule: rule, Errors: errs}
}

// report logs a failed check: rejections at warn level with one line per
// rule error, fatal errors at error level.
func report(err error, logger log.Logger) bool {
	if err == nil {
		return true
	}
	if logger == nil {
		logger = log.Root()
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		logger.Warn("Header validation failed", "rule", verr.Rule, "errors", "\n"+verr.Errors.String())
	} else {
		logger.Error("Header validation error", "err", err)
	}
	return false
}
