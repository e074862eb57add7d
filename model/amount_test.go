/*
Copyright 2025 Finboard Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVatFromInclusiveTotal(t *testing.T) {
	// 11800 = 10000 net + 1800 VAT at 18% inclusive.
	assert.Equal(t, int64(1800), VatFromInclusiveTotal(11800, 18))
	assert.Equal(t, int64(10000), NetFromInclusiveTotal(11800, 18))
}

func TestVatFromInclusiveTotal_NegativeTotal(t *testing.T) {
	// VAT is extracted from the magnitude of the amount.
	assert.Equal(t, int64(1800), VatFromInclusiveTotal(-11800, 18))
	assert.Equal(t, int64(10000), NetFromInclusiveTotal(-11800, 18))
}

func TestVatFromInclusiveTotal_ZeroRate(t *testing.T) {
	assert.Equal(t, int64(0), VatFromInclusiveTotal(11800, 0))
	assert.Equal(t, int64(11800), NetFromInclusiveTotal(11800, 0))
	assert.Equal(t, int64(0), VatFromInclusiveTotal(11800, -5))
	assert.Equal(t, int64(11800), NetFromInclusiveTotal(11800, -5))
}

func TestVatFromInclusiveTotal_Rounding(t *testing.T) {
	// 100 at 17%: VAT = 100*17/117 = 14.529... -> 15, net = 85.47 -> 85.
	assert.Equal(t, int64(15), VatFromInclusiveTotal(100, 17))
	assert.Equal(t, int64(85), NetFromInclusiveTotal(100, 17))
}
