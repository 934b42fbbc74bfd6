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

// Package checks contains parameter checks for differentially private
// estimation and mechanisms.
package checks

import (
	"fmt"
	"math"
)

const (
	epsilonName = "Epsilon"
	deltaName   = "Delta"
	rhoName     = "Rho"
)

func verifyName(defaultName string, nameSlice []string) (string, error) {
	var name string
	switch len(nameSlice) {
	case 0:
		name = defaultName
	case 1:
		name = nameSlice[0]
	default:
		return "", fmt.Errorf("This should never happen. There should be 0 or 1 'name' parameter, got %d", len(nameSlice))
	}
	return name, nil
}

// CheckEpsilonStrict returns an error if ε is nonpositive or +∞.
func CheckEpsilonStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite", epsName, epsilon)
	}
	return nil
}

// CheckEpsilon returns an error if ε is strictly negative or +∞.
func CheckEpsilon(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon < 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %f, must be nonnegative and finite", epsName, epsilon)
	}
	return nil
}

// CheckDeltaStrict returns an error if δ is nonpositive or greater than or
// equal to 1.
func CheckDeltaStrict(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(delta) {
		return fmt.Errorf("%s is %e, cannot be NaN", delName, delta)
	}
	if delta <= 0 {
		return fmt.Errorf("%s is %e, must be strictly positive", delName, delta)
	}
	if delta >= 1 {
		return fmt.Errorf("%s is %e, must be strictly less than 1", delName, delta)
	}
	return nil
}

// CheckRhoStrict returns an error if the zCDP budget ρ is nonpositive or
// +∞.
func CheckRhoStrict(rho float64, name ...string) error {
	rhoN, err := verifyName(rhoName, name)
	if err != nil {
		return err
	}
	if rho <= 0 || math.IsInf(rho, 0) || math.IsNaN(rho) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite", rhoN, rho)
	}
	return nil
}

// CheckRho returns an error if the zCDP budget ρ is strictly negative or
// +∞.
func CheckRho(rho float64, name ...string) error {
	rhoN, err := verifyName(rhoName, name)
	if err != nil {
		return err
	}
	if rho < 0 || math.IsInf(rho, 0) || math.IsNaN(rho) {
		return fmt.Errorf("%s is %f, must be nonnegative and finite", rhoN, rho)
	}
	return nil
}

// CheckSensitivity returns an error if a query sensitivity is nonpositive
// or +∞.
func CheckSensitivity(sensitivity float64) error {
	if sensitivity <= 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return fmt.Errorf("Sensitivity is %f, must be strictly positive and finite", sensitivity)
	}
	return nil
}

// CheckIterations returns an error if an iteration count is negative.
func CheckIterations(iters int) error {
	if iters < 0 {
		return fmt.Errorf("Iterations is %d, must be nonnegative", iters)
	}
	return nil
}

// CheckLipschitz returns an error if a gradient-Lipschitz constant is
// nonpositive or +∞.
func CheckLipschitz(lipschitz float64) error {
	if lipschitz <= 0 || math.IsInf(lipschitz, 0) || math.IsNaN(lipschitz) {
		return fmt.Errorf("Lipschitz is %f, must be strictly positive and finite", lipschitz)
	}
	return nil
}

// CheckTotal returns an error if a record total is nonpositive or +∞.
func CheckTotal(total float64) error {
	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return fmt.Errorf("Total is %f, must be strictly positive and finite", total)
	}
	return nil
}

// CheckModelSize returns an error if a model-size budget in megabytes is
// nonpositive or +∞.
func CheckModelSize(sizeMB float64) error {
	if sizeMB <= 0 || math.IsInf(sizeMB, 0) || math.IsNaN(sizeMB) {
		return fmt.Errorf("MaxModelSize is %f, must be strictly positive and finite", sizeMB)
	}
	return nil
}
