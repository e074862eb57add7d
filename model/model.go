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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fingerprintSeparator joins the semantic fields of a statement row before
// hashing. The unit separator control character never appears in statement
// exports, so field boundaries stay unambiguous.
const fingerprintSeparator = "\x1f"

// GenerateUUIDWithSuffix generates a UUID prefixed with a module name.
// This keeps identifiers self-describing (prc_..., chg_..., mch_...).
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// FingerprintRow computes a stable content fingerprint for an imported
// statement row. Two imports of the same logical transaction produce the
// same fingerprint, even when the file was re-exported, because only the
// semantic fields participate: source type tag, date (day precision),
// trimmed description, amount in minor units and the card identifier.
func FingerprintRow(sourceType string, date time.Time, description string, amount int64, cardID string) string {
	data := strings.Join([]string{
		sourceType,
		date.Format("2006-01-02"),
		strings.TrimSpace(description),
		fmt.Sprintf("%d", amount),
		cardID,
	}, fingerprintSeparator)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
