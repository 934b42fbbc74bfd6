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

// Package mechanism implements the AIM adaptive mechanism for selecting
// and measuring marginals under a zero-concentrated differential privacy
// budget.
package mechanism

import (
	"fmt"

	"github.com/jnear/private-pgm/checks"
)

// spendSlack absorbs float rounding when fractional allocations of the
// total budget are spent back one by one.
const spendSlack = 1e-9

// Accountant tracks zCDP budget consumption for a single mechanism run.
type Accountant struct {
	rho  float64
	used float64
}

// NewAccountant tracks spending against a total budget of rho.
func NewAccountant(rho float64) (*Accountant, error) {
	if err := checks.CheckRhoStrict(rho); err != nil {
		return nil, err
	}
	return &Accountant{rho: rho}, nil
}

// Rho returns the total budget.
func (a *Accountant) Rho() float64 {
	return a.rho
}

// Used returns the budget spent so far.
func (a *Accountant) Used() float64 {
	return a.used
}

// Remaining returns the unspent budget, never negative.
func (a *Accountant) Remaining() float64 {
	if r := a.rho - a.used; r > 0 {
		return r
	}
	return 0
}

// Spend debits rho from the budget, failing if it would over-spend.
func (a *Accountant) Spend(rho float64) error {
	if err := checks.CheckRhoStrict(rho); err != nil {
		return err
	}
	if a.used+rho > a.rho*(1+spendSlack) {
		return fmt.Errorf("mechanism: spending %g exceeds budget, %g of %g already used", rho, a.used, a.rho)
	}
	a.used += rho
	if a.used > a.rho {
		a.used = a.rho
	}
	return nil
}
