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

// Package misc holds the energy limit rules shared by block production and
// header validation.
package misc

import (
	"errors"
	"fmt"

	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

var errZeroDivisor = errors.New("energy limit divisor must be positive")

// VerifyEnergyLimit verifies the header energy limit according to its parent:
// it may not fall below lowerBound and may move by at most parentLimit/divisor.
func VerifyEnergyLimit(parentLimit, limit, divisor, lowerBound uint64) error {
	if divisor == 0 {
		return errZeroDivisor
	}
	if limit < lowerBound {
		return fmt.Errorf("energy limit (%d) below minimum (%d)", limit, lowerBound)
	}
	diff := limit - parentLimit
	if parentLimit > limit {
		diff = parentLimit - limit
	}
	if bound := parentLimit / divisor; diff > bound {
		return fmt.Errorf("energy limit (%d) deviates from parent (%d) by more than %d", limit, parentLimit, bound)
	}
	return nil
}

// EnergyStrategy picks the energy limit of a block built on parent.
type EnergyStrategy interface {
	EnergyLimit(parent types.Header) uint64
}

// NewEnergyStrategy returns the strategy named in config.
func NewEnergyStrategy(config params.EnergyConfig) (EnergyStrategy, error) {
	if config.LimitDivisor == 0 {
		return nil, errZeroDivisor
	}
	switch config.Strategy {
	case "monotonic":
		return &monotonic{config}, nil
	case "target":
		return &target{config}, nil
	case "clamped", "":
		return &clamped{config}, nil
	default:
		return nil, fmt.Errorf("unknown energy strategy %q", config.Strategy)
	}
}

// monotonic raises the limit towards the upper bound.
type monotonic struct{ config params.EnergyConfig }

func (s *monotonic) EnergyLimit(parent types.Header) uint64 {
	return calcEnergyLimit(parent.Base().EnergyLimit, s.config.UpperBound, s.config)
}

// target moves the limit towards a fixed target.
type target struct{ config params.EnergyConfig }

func (s *target) EnergyLimit(parent types.Header) uint64 {
	return calcEnergyLimit(parent.Base().EnergyLimit, s.config.TargetLimit, s.config)
}

// clamped keeps the parent limit unless it lies outside the bounds.
type clamped struct{ config params.EnergyConfig }

func (s *clamped) EnergyLimit(parent types.Header) uint64 {
	limit := parent.Base().EnergyLimit
	switch {
	case limit < s.config.LowerBound:
		return calcEnergyLimit(limit, s.config.LowerBound, s.config)
	case s.config.UpperBound != 0 && limit > s.config.UpperBound:
		return calcEnergyLimit(limit, s.config.UpperBound, s.config)
	}
	return limit
}

// calcEnergyLimit computes the energy limit of the next block. It aims to
// keep the baseline close to the desired limit, moving by strictly less than
// the allowed deviation per block. A parent below the lower bound jumps to it.
func calcEnergyLimit(parentLimit, desired uint64, config params.EnergyConfig) uint64 {
	if desired < config.LowerBound {
		desired = config.LowerBound
	}
	if parentLimit < config.LowerBound {
		return config.LowerBound
	}
	delta := parentLimit / config.LimitDivisor
	if delta > 0 {
		delta--
	}
	limit := parentLimit
	if limit < desired {
		limit = parentLimit + delta
		if limit > desired {
			limit = desired
		}
		return limit
	}
	if limit > desired {
		limit = parentLimit - delta
		if limit < desired {
			limit = desired
		}
	}
	return limit
}
