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

package finboard

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/finboardhq/finboard/internal/apierror"
	"github.com/finboardhq/finboard/model"
)

// leadingPhrases are locale-specific statement markers stripped from the
// front of a description before any other cleaning. Tried in order; a
// description matches at most one.
var leadingPhrases = []string{
	"העברה לחשבון ",
	"העברה מחשבון ",
	"העברה ל-",
	"העברה ל ",
	"הוראת קבע ל",
	"הוראת קבע ",
	"תשלום לכרטיס ",
	"תשלום ל-",
	"תשלום ל ",
	"הפקדה ל",
	"משיכה מ",
	"חיוב ",
	"זיכוי ",
	"TRANSFER TO ",
	"TRANSFER FROM ",
	"STANDING ORDER ",
	"DIRECT DEBIT ",
	"PAYMENT TO ",
	"DEPOSIT ",
	"WITHDRAWAL ",
	"CHARGE ",
	"CREDIT ",
}

// abbreviations maps lowercased statement shorthand to the merchant's
// canonical display name. Keys are matched against the whole cleaned
// string or its first word.
var abbreviations = map[string]string{
	"amzn":     "Amazon",
	"amzn mkt": "Amazon",
	"facebk":   "Facebook",
	"fb":       "Facebook",
	"goog":     "Google",
	"google":   "Google",
	"msft":     "Microsoft",
	"aplpay":   "Apple Pay",
	"paypal":   "PayPal",
	"pp":       "PayPal",
	"wolt":     "Wolt",
	"nflx":     "Netflix",
	"spotify":  "Spotify",
	"sq":       "Square",
}

var (
	// *REF123 style trailing reference codes.
	starSuffixRe = regexp.MustCompile(`\*[A-Za-z0-9]+\s*$`)
	// -878873220XYZ style trailing reference codes, at least 6 chars.
	dashSuffixRe = regexp.MustCompile(`-[A-Za-z0-9]{6,}\s*$`)
	// A hyphen or en-dash followed by a digit starts trailing metadata.
	metadataSepRe = regexp.MustCompile(`[-–]\s?\d`)
	doubleSpaceRe = regexp.MustCompile(`\s{2,}`)
	// Trailing parenthesized groups containing a digit, e.g. "(ת 3 תשלומים)".
	parenDigitsRe = regexp.MustCompile(`\([^)]*\d[^)]*\)\s*$`)
	trailingRunRe = regexp.MustCompile(`[\s*\d]+$`)
	keyStripRe    = regexp.MustCompile(`['"׳״\-_.]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// CleanMerchantName reduces a raw transaction description to a merchant
// display name: statement markers and reference codes removed, known
// abbreviations expanded.
func CleanMerchantName(raw string) string {
	s := strings.TrimSpace(raw)

	for _, phrase := range leadingPhrases {
		if len(s) >= len(phrase) && strings.EqualFold(s[:len(phrase)], phrase) {
			s = s[len(phrase):]
			break
		}
	}

	s = starSuffixRe.ReplaceAllString(s, "")
	s = dashSuffixRe.ReplaceAllString(s, "")

	if loc := metadataSepRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	if loc := doubleSpaceRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}

	for {
		next := parenDigitsRe.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = strings.TrimSpace(next)
	}
	s = trailingRunRe.ReplaceAllString(s, "")

	s = strings.TrimSpace(s)
	if expansion, ok := lookupAbbreviation(s); ok {
		return expansion
	}
	return s
}

// NormalizeMerchant produces the canonical grouping key for a raw
// description. Two descriptions denote the same merchant iff their keys
// are equal.
func NormalizeMerchant(raw string) string {
	return merchantKey(CleanMerchantName(raw))
}

// NormalizeMerchantWithAliases applies the owner's alias list before the
// built-in normalization. Aliases must be sorted by priority descending;
// the first matching alias wins and its canonical name becomes the key
// source.
func NormalizeMerchantWithAliases(raw string, aliases []*model.MerchantAlias) string {
	if name, ok := applyAliases(raw, aliases); ok {
		return merchantKey(name)
	}
	return NormalizeMerchant(raw)
}

// lookupAbbreviation checks the cleaned string, then its first word,
// against the abbreviation table.
func lookupAbbreviation(cleaned string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(cleaned))
	if expansion, ok := abbreviations[lower]; ok {
		return expansion, true
	}
	if first := strings.SplitN(lower, " ", 2)[0]; first != lower {
		if expansion, ok := abbreviations[first]; ok {
			return expansion, true
		}
	}
	return "", false
}

func applyAliases(raw string, aliases []*model.MerchantAlias) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	for _, alias := range aliases {
		pattern := strings.ToLower(strings.TrimSpace(alias.Pattern))
		if pattern == "" {
			continue
		}
		switch alias.MatchType {
		case model.AliasExact:
			if lower == pattern {
				return alias.CanonicalName, true
			}
		case model.AliasContains:
			if strings.Contains(lower, pattern) {
				return alias.CanonicalName, true
			}
		case model.AliasPrefix:
			if strings.HasPrefix(lower, pattern) {
				return alias.CanonicalName, true
			}
		}
	}
	return "", false
}

// merchantKey lowercases, strips quotes and punctuation (including Hebrew
// geresh and gershayim), and collapses internal whitespace.
func merchantKey(name string) string {
	key := strings.ToLower(name)
	key = keyStripRe.ReplaceAllString(key, "")
	key = whitespaceRe.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}

// MerchantGroup is one bucket of purchases that normalize to the same
// merchant key.
type MerchantGroup struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"display_name"`
	Count       int      `json:"count"`
	TotalAmount int64    `json:"total_amount"`
	PurchaseIDs []string `json:"purchase_ids"`
}

// AliasSuggestion proposes merging two merchant keys that are close in
// edit distance and probably denote the same vendor.
type AliasSuggestion struct {
	Key           string `json:"key"`
	SimilarKey    string `json:"similar_key"`
	CanonicalName string `json:"canonical_name"`
	Distance      int    `json:"distance"`
}

// MerchantGroups buckets an owner's purchases by normalized merchant key,
// honoring the owner's alias overrides. Pagination applies to the
// underlying purchases, not to the resulting groups.
func (f *Finboard) MerchantGroups(ctx context.Context, ownerID string, limit, offset int) ([]*MerchantGroup, error) {
	ctx, span := tracer.Start(ctx, "Grouping Purchases By Merchant")
	defer span.End()

	if ownerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Owner ID is required", nil)
	}

	aliases, err := f.datasource.GetMerchantAliases(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	purchases, err := f.datasource.GetPurchasesByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}

	groupIndex := make(map[string]*MerchantGroup)
	var order []string
	for _, p := range purchases {
		key := NormalizeMerchantWithAliases(p.Description, aliases)
		if key == "" {
			logrus.Warnf("purchase %s normalized to an empty merchant key, skipping", p.PurchaseID)
			continue
		}
		g, ok := groupIndex[key]
		if !ok {
			g = &MerchantGroup{Key: key, DisplayName: CleanMerchantName(p.Description)}
			if name, aliased := applyAliases(p.Description, aliases); aliased {
				g.DisplayName = name
			}
			groupIndex[key] = g
			order = append(order, key)
		}
		g.Count++
		g.TotalAmount += p.EffectiveAmount()
		g.PurchaseIDs = append(g.PurchaseIDs, p.PurchaseID)
	}

	groups := make([]*MerchantGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, groupIndex[key])
	}
	return groups, nil
}

// maxSuggestionDistance is the largest edit distance between two merchant
// keys still considered "probably the same vendor".
const maxSuggestionDistance = 2

// SuggestMerchantAliases compares the owner's merchant keys pairwise and
// proposes alias candidates for keys within a small edit distance of each
// other. The longer key is suggested as the pattern, the shorter group's
// display name as the canonical name.
func (f *Finboard) SuggestMerchantAliases(ctx context.Context, ownerID string, limit, offset int) ([]*AliasSuggestion, error) {
	ctx, span := tracer.Start(ctx, "Suggesting Merchant Aliases")
	defer span.End()

	groups, err := f.MerchantGroups(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })

	var suggestions []*AliasSuggestion
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			a, b := groups[i], groups[j]
			// Cheap length guard before the O(len*len) distance computation.
			if abs(len(a.Key)-len(b.Key)) > maxSuggestionDistance {
				continue
			}
			distance := levenshtein.DistanceForStrings([]rune(a.Key), []rune(b.Key), levenshtein.DefaultOptions)
			if distance == 0 || distance > maxSuggestionDistance {
				continue
			}
			suggestions = append(suggestions, &AliasSuggestion{
				Key:           b.Key,
				SimilarKey:    a.Key,
				CanonicalName: a.DisplayName,
				Distance:      distance,
			})
		}
	}
	return suggestions, nil
}

// CreateMerchantAlias stores a new alias override for an owner.
func (f *Finboard) CreateMerchantAlias(ctx context.Context, alias *model.MerchantAlias) (*model.MerchantAlias, error) {
	ctx, span := tracer.Start(ctx, "Creating Merchant Alias")
	defer span.End()

	if alias.OwnerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Owner ID is required", nil)
	}
	if _, err := model.ParseAliasMatchType(string(alias.MatchType)); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}

	alias.AliasID = model.GenerateUUIDWithSuffix("als")
	if err := f.datasource.RecordMerchantAlias(ctx, alias); err != nil {
		return nil, err
	}
	return alias, nil
}

// GetMerchantAliases lists an owner's alias overrides.
func (f *Finboard) GetMerchantAliases(ctx context.Context, ownerID string) ([]*model.MerchantAlias, error) {
	if ownerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Owner ID is required", nil)
	}
	return f.datasource.GetMerchantAliases(ctx, ownerID)
}

// UpdateMerchantAlias overwrites an existing alias.
func (f *Finboard) UpdateMerchantAlias(ctx context.Context, alias *model.MerchantAlias) error {
	if _, err := model.ParseAliasMatchType(string(alias.MatchType)); err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}
	return f.datasource.UpdateMerchantAlias(ctx, alias)
}

// DeleteMerchantAlias removes an alias.
func (f *Finboard) DeleteMerchantAlias(ctx context.Context, aliasID string) error {
	return f.datasource.DeleteMerchantAlias(ctx, aliasID)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
