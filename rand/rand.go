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

// Package rand provides cryptographically secure randomness for the
// privacy mechanisms, exposed through the math/rand/v2 Source interface so
// that the distribution samplers used for noising can run on a secure
// source by default and an explicitly seeded one in tests.
package rand

import (
	"bufio"
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math"
	mathrand "math/rand/v2"
	"sync"

	log "github.com/golang/glog"
)

var (
	randBufLock sync.Mutex
	randBuf     io.Reader = bufio.NewReaderSize(cryptorand.Reader, 65536)
)

func readRandBuf(b []byte) (int, error) {
	randBufLock.Lock()
	defer randBufLock.Unlock()
	return io.ReadFull(randBuf, b)
}

// U64 returns a uniformly random uint64.
func U64() uint64 {
	var r [8]uint8
	if _, err := readRandBuf(r[:]); err != nil {
		log.Fatalf("out of randomness, should never happen: %v", err)
	}
	return binary.LittleEndian.Uint64(r[:])
}

// Uniform returns a uniformly random float64 from the interval [0, 1).
func Uniform() float64 {
	return float64(U64()>>11) * (1.0 / (1 << 53))
}

// source adapts the secure byte stream to math/rand/v2.
type source struct{}

func (source) Uint64() uint64 { return U64() }

// Source returns a cryptographically secure math/rand/v2 source. It is
// safe for concurrent use.
func Source() mathrand.Source {
	return source{}
}

// New returns a *math/rand/v2.Rand backed by the secure source.
func New() *mathrand.Rand {
	return mathrand.New(Source())
}

// NewSeeded returns a deterministic *math/rand/v2.Rand for tests and
// reproducible runs.
func NewSeeded(seed uint64) *mathrand.Rand {
	return mathrand.New(mathrand.NewPCG(seed, seed^math.MaxUint32))
}
