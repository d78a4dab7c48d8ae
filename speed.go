// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sierra

import (
	"context"
	"fmt"
	"time"
)

// bitRates maps line speeds to their register 17 codes.
var bitRates = []struct {
	rate int
	code uint32
}{
	{9600, 1},
	{19200, 2},
	{38400, 3},
	{57600, 4},
	{115200, 5},
}

// SupportedBitRates lists the speeds the protocol can negotiate.
func SupportedBitRates() []int {
	rates := make([]int, len(bitRates))
	for i, br := range bitRates {
		rates[i] = br.rate
	}
	return rates
}

func bitRateCode(rate int) (uint32, bool) {
	for _, br := range bitRates {
		if br.rate == rate {
			return br.code, true
		}
	}
	return 0, false
}

// SetSpeed switches camera and transport to a new bit rate. The camera is
// told first; the transport changes only after it acknowledged. Profiles
// without a serial handshake have no bit rate and ignore the call.
func (c *Camera) SetSpeed(ctx context.Context, rate int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrap(c.setSpeed(ctx, rate))
}

func (c *Camera) setSpeed(ctx context.Context, rate int) error {
	code, ok := bitRateCode(rate)
	if !ok {
		return fmt.Errorf("%w: unsupported bit rate %d", ErrInvalidParameter, rate)
	}
	if !c.profile.Handshake {
		Debugf("%s profile has no bit rate, ignoring %d bps", c.profile.Name, rate)
		return nil
	}
	if err := c.requireSession(); err != nil {
		return err
	}
	if rate == c.session.bitRate {
		return nil
	}

	if err := c.setInt(ctx, RegisterBitRate, &code); err != nil {
		return fmt.Errorf("requesting %d bps: %w", rate, err)
	}
	if err := c.transport.SetBitRate(rate); err != nil {
		return NewFatalError("set bit rate", c.profile.Name, err)
	}
	time.Sleep(SpeedSettleDelay)

	c.session.bitRate = rate
	Debugf("line speed now %d bps", rate)
	return nil
}
