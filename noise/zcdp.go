//
// Copyright 2024 The Private-PGM Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package noise implements the zero-concentrated differential privacy
// primitives of the library: conversion between (ε,δ)-DP and zCDP budgets,
// and Gaussian-mechanism noising calibrated to a per-query ρ allocation.
package noise

import (
	"math"

	"github.com/jnear/private-pgm/checks"
)

// Accuracy of the budget-conversion searches, relative to the result.
const conversionAccuracy = 1e-10

// CdpDelta computes the smallest δ such that a ρ-zCDP mechanism satisfies
// (ε,δ)-differential privacy. The bound is the tight Rényi-divergence
// conversion of Canonne, Kamath and Steinke, "The Discrete Gaussian for
// Differential Privacy" (https://arxiv.org/abs/2004.00010), optimized over
// the Rényi order α by bisection on the derivative.
func CdpDelta(rho, eps float64) (float64, error) {
	if err := checks.CheckRho(rho); err != nil {
		return 0, err
	}
	if err := checks.CheckEpsilon(eps); err != nil {
		return 0, err
	}
	if rho == 0 {
		return 0, nil
	}

	// The objective
	//   f(α) = (α-1)(αρ-ε) + α·log1p(-1/α) - log(α-1)
	// is convex in α > 1 with derivative (2α-1)ρ - ε + log1p(-1/α).
	amin := 1.01
	amax := (eps+1)/(2*rho) + 2
	var alpha float64
	for amax-amin > conversionAccuracy*amin {
		alpha = 0.5*amin + 0.5*amax
		derivative := (2*alpha-1)*rho - eps + math.Log1p(-1.0/alpha)
		if derivative < 0 {
			amin = alpha
		} else {
			amax = alpha
		}
	}

	delta := math.Exp((alpha-1)*(alpha*rho-eps)+alpha*math.Log1p(-1/alpha)) / (alpha - 1.0)
	return math.Min(delta, 1.0), nil
}

// CdpRho computes the largest zCDP budget ρ whose tight conversion stays
// within (ε,δ)-differential privacy. This is the total budget available to
// a mechanism run configured with (ε,δ).
//
// CdpRho uses binary search; the result deviates from the exact value by
// at most conversionAccuracy relative error, rounded down so the resulting
// guarantee is never overstated.
func CdpRho(eps, delta float64) (float64, error) {
	if err := checks.CheckEpsilonStrict(eps); err != nil {
		return 0, err
	}
	if err := checks.CheckDeltaStrict(delta); err != nil {
		return 0, err
	}

	// CdpDelta is increasing in rho, and rho = eps is always more than
	// enough: a (eps)-zCDP mechanism is far from (eps,delta)-DP.
	lowerBound := 0.0
	upperBound := eps + 1
	for upperBound-lowerBound > conversionAccuracy*math.Max(lowerBound, conversionAccuracy) {
		middle := 0.5*lowerBound + 0.5*upperBound
		d, err := CdpDelta(middle, eps)
		if err != nil {
			return 0, err
		}
		if d <= delta {
			lowerBound = middle
		} else {
			upperBound = middle
		}
	}
	return lowerBound, nil
}
