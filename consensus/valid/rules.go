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
	"time"

	"github.com/aionnetwork/go-aion/consensus/misc"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

// HeaderSealTypeRule checks that the declared seal type matches the header
// variant.
type HeaderSealTypeRule struct{}

func (HeaderSealTypeRule) Name() string { return "HeaderSealTypeRule" }

func (r HeaderSealTypeRule) Validate(header types.Header, errs *RuleErrors) (bool, error) {
	declared, variant := header.Base().Seal, types.VariantSealType(header)
	if declared != variant {
		errs.add(r.Name(), "seal type (%v) does not match header variant (%v)", declared, variant)
		return false, nil
	}
	return true, nil
}

// FutureBlockRule rejects headers stamped further in the future than the
// tolerated clock drift.
type FutureBlockRule struct {
	now   func() time.Time
	drift uint64
}

// NewFutureBlockRule creates the rule, reading the clock through now, or
// time.Now if nil.
func NewFutureBlockRule(now func() time.Time) *FutureBlockRule {
	if now == nil {
		now = time.Now
	}
	return &FutureBlockRule{now: now, drift: params.AllowedFutureBlockTime}
}

func (*FutureBlockRule) Name() string { return "FutureBlockRule" }

func (r *FutureBlockRule) Validate(header types.Header, errs *RuleErrors) (bool, error) {
	limit := uint64(r.now().Unix()) + r.drift
	if ts := header.Base().Time; ts > limit {
		errs.add(r.Name(), "timestamp (%d) is later than %d", ts, limit)
		return false, nil
	}
	return true, nil
}

// EnergyConsumedRule checks that a block does not consume more energy than its
// limit.
type EnergyConsumedRule struct{}

func (EnergyConsumedRule) Name() string { return "EnergyConsumedRule" }

func (r EnergyConsumedRule) Validate(header types.Header, errs *RuleErrors) (bool, error) {
	b := header.Base()
	if b.EnergyConsumed > b.EnergyLimit {
		errs.add(r.Name(), "energy consumed (%d) > energy limit (%d)", b.EnergyConsumed, b.EnergyLimit)
		return false, nil
	}
	return true, nil
}

// AionExtraDataRule bounds the size of the extra data.
type AionExtraDataRule struct {
	Max int
}

func (AionExtraDataRule) Name() string { return "AionExtraDataRule" }

func (r AionExtraDataRule) Validate(header types.Header, errs *RuleErrors) (bool, error) {
	if n := len(header.Base().Extra); n > r.Max {
		errs.add(r.Name(), "extra data length (%d) > maximum (%d)", n, r.Max)
		return false, nil
	}
	return true, nil
}

// AionHeaderVersionRule accepts the header versions of an allow-list.
type AionHeaderVersionRule struct {
	Versions []byte
}

func (AionHeaderVersionRule) Name() string { return "AionHeaderVersionRule" }

func (r AionHeaderVersionRule) Validate(header types.Header, errs *RuleErrors) (bool, error) {
	version := header.Base().Version
	for _, v := range r.Versions {
		if v == version {
			return true, nil
		}
	}
	errs.add(r.Name(), "version (%d) not in %v", version, r.Versions)
	return false, nil
}

// BlockNumberRule requires a header to directly follow its parent.
type BlockNumberRule struct{}

func (BlockNumberRule) Name() string { return "BlockNumberRule" }

func (r BlockNumberRule) Validate(header, parent types.Header, _ interface{}, errs *RuleErrors) (bool, error) {
	number, parentNumber := header.Base().Number, parent.Base().Number
	if number != parentNumber+1 {
		errs.add(r.Name(), "block number (%d) != parent number (%d) + 1", number, parentNumber)
		return false, nil
	}
	return true, nil
}

// TimeStampRule requires timestamps to strictly increase.
type TimeStampRule struct{}

func (TimeStampRule) Name() string { return "TimeStampRule" }

func (r TimeStampRule) Validate(header, parent types.Header, _ interface{}, errs *RuleErrors) (bool, error) {
	ts, parentTs := header.Base().Time, parent.Base().Time
	if ts <= parentTs {
		errs.add(r.Name(), "timestamp (%d) <= parent timestamp (%d)", ts, parentTs)
		return false, nil
	}
	return true, nil
}

// ParentOppositeTypeRule enforces the alternation of mining and staking
// blocks.
type ParentOppositeTypeRule struct{}

func (ParentOppositeTypeRule) Name() string { return "ParentOppositeTypeRule" }

func (r ParentOppositeTypeRule) Validate(header, parent types.Header, _ interface{}, errs *RuleErrors) (bool, error) {
	seal, parentSeal := header.Base().Seal, parent.Base().Seal
	if seal == parentSeal {
		errs.add(r.Name(), "seal type (%v) must differ from parent seal type (%v)", seal, parentSeal)
		return false, nil
	}
	return true, nil
}

// EnergyLimitRule bounds the change of the energy limit between blocks.
type EnergyLimitRule struct {
	Divisor    uint64
	LowerBound uint64
}

func (EnergyLimitRule) Name() string { return "EnergyLimitRule" }

func (r EnergyLimitRule) Validate(header, parent types.Header, _ interface{}, errs *RuleErrors) (bool, error) {
	if err := misc.VerifyEnergyLimit(parent.Base().EnergyLimit, header.Base().EnergyLimit, r.Divisor, r.LowerBound); err != nil {
		errs.add(r.Name(), "%v", err)
		return false, nil
	}
	return true, nil
}
