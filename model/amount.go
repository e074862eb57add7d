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

import "github.com/shopspring/decimal"

// VatFromInclusiveTotal extracts the VAT component from a VAT-inclusive
// amount in integer minor units: round(|total| * rate / (100 + rate)).
// Rounding is half-up on the magnitude. A rate of zero or less returns 0.
func VatFromInclusiveTotal(totalMinorUnits int64, ratePercent float64) int64 {
	if ratePercent <= 0 {
		return 0
	}
	total := decimal.NewFromInt(totalMinorUnits).Abs()
	rate := decimal.NewFromFloat(ratePercent)
	vat := total.Mul(rate).Div(rate.Add(decimal.NewFromInt(100)))
	return vat.Round(0).IntPart()
}

// NetFromInclusiveTotal returns the net component of a VAT-inclusive
// amount: round(|total| * 100 / (100 + rate)). A rate of zero or less
// returns the input unchanged.
func NetFromInclusiveTotal(totalMinorUnits int64, ratePercent float64) int64 {
	if ratePercent <= 0 {
		return totalMinorUnits
	}
	total := decimal.NewFromInt(totalMinorUnits).Abs()
	rate := decimal.NewFromFloat(ratePercent)
	net := total.Mul(decimal.NewFromInt(100)).Div(rate.Add(decimal.NewFromInt(100)))
	return net.Round(0).IntPart()
}
