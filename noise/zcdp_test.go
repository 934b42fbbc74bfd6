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

package noise

import (
	"math"
	"testing"
)

func TestCdpDelta(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		rho, eps float64
	}{
		{"moderate budget", 0.1, 1.0},
		{"tight budget", 0.01, 0.5},
		{"loose budget", 1.0, 4.0},
	} {
		delta, err := CdpDelta(tc.rho, tc.eps)
		if err != nil {
			t.Fatalf("CdpDelta: when %s failed: %v", tc.desc, err)
		}
		if delta <= 0 || delta > 1 {
			t.Errorf("CdpDelta: when %s got %v, want in (0, 1]", tc.desc, delta)
		}
	}
}

func TestCdpDeltaZeroRho(t *testing.T) {
	delta, err := CdpDelta(0, 1.0)
	if err != nil {
		t.Fatalf("CdpDelta failed: %v", err)
	}
	if delta != 0 {
		t.Errorf("CdpDelta: with zero rho got %v, want 0", delta)
	}
}

func TestCdpDeltaMonotoneInRho(t *testing.T) {
	prev := 0.0
	for _, rho := range []float64{0.01, 0.05, 0.1, 0.5, 1.0} {
		delta, err := CdpDelta(rho, 1.0)
		if err != nil {
			t.Fatalf("CdpDelta(%v) failed: %v", rho, err)
		}
		if delta < prev {
			t.Errorf("CdpDelta: delta %v at rho %v is below the previous value %v, want nondecreasing", delta, rho, prev)
		}
		prev = delta
	}
}

func TestCdpRhoInvertsCdpDelta(t *testing.T) {
	for _, tc := range []struct {
		desc       string
		eps, delta float64
	}{
		{"standard guarantee", 1.0, 1e-9},
		{"small epsilon", 0.1, 1e-6},
		{"large epsilon", 5.0, 1e-12},
	} {
		rho, err := CdpRho(tc.eps, tc.delta)
		if err != nil {
			t.Fatalf("CdpRho: when %s failed: %v", tc.desc, err)
		}
		if rho <= 0 || rho >= tc.eps {
			t.Errorf("CdpRho: when %s got %v, want in (0, %v)", tc.desc, rho, tc.eps)
		}
		back, err := CdpDelta(rho, tc.eps)
		if err != nil {
			t.Fatalf("CdpDelta: when %s failed: %v", tc.desc, err)
		}
		if back > tc.delta {
			t.Errorf("CdpDelta(CdpRho): when %s got %v, want at most %v", tc.desc, back, tc.delta)
		}
	}
}

func TestConversionValidation(t *testing.T) {
	if _, err := CdpDelta(-1, 1); err == nil {
		t.Errorf("CdpDelta: with negative rho got nil error, want error")
	}
	if _, err := CdpDelta(1, math.Inf(1)); err == nil {
		t.Errorf("CdpDelta: with infinite epsilon got nil error, want error")
	}
	if _, err := CdpRho(0, 1e-9); err == nil {
		t.Errorf("CdpRho: with zero epsilon got nil error, want error")
	}
	if _, err := CdpRho(1, 0); err == nil {
		t.Errorf("CdpRho: with zero delta got nil error, want error")
	}
	if _, err := CdpRho(1, 1); err == nil {
		t.Errorf("CdpRho: with delta of one got nil error, want error")
	}
}
