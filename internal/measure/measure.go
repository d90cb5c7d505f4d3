// Package measure decides which measurement fields apply to a garment
// category and coerces submitted values. The same whitelist is consulted
// when persisting a measurement and when serializing one back out, so the
// two paths can never disagree.
package measure

import (
	"log"
	"strconv"
	"strings"

	"github.com/tailorbook/api/internal/enum"
)

// commonFields apply to every garment category.
var commonFields = []string{
	"length",
	"across_shoulder",
	"upper_chest",
	"chest",
	"waist",
	"front_neck_depth",
	"back_neck_depth",
	"sleeve_length",
	"armhole",
	"biceps",
	"sleeve_cuff",
}

// categoryExtra lists the fields each category adds on top of commonFields.
var categoryExtra = map[string][]string{
	enum.CategoryBlouse:  {"shoulder_apex"},
	enum.CategoryKurti:   {"hip"},
	enum.CategoryLehenga: {"hip", "waist_floor", "belt"},
	enum.CategoryPant:    {"hip", "waist_ankle", "waist_floor", "belt", "thigh", "ankle"},
}

// AllFields is every measurement column in storage order. Used by the joined
// detail endpoint, which renders whatever is populated regardless of category.
var AllFields = []string{
	"length", "across_shoulder", "upper_chest", "chest", "waist",
	"front_neck_depth", "back_neck_depth", "sleeve_length", "armhole",
	"biceps", "sleeve_cuff", "shoulder_apex", "hip", "waist_floor",
	"belt", "waist_ankle", "thigh", "ankle",
}

// Fields returns the whitelist for category: the common fields plus the
// category's extension set. Unknown categories get just the common fields.
func Fields(category string) []string {
	extra := categoryExtra[category]
	out := make([]string, 0, len(commonFields)+len(extra))
	out = append(out, commonFields...)
	out = append(out, extra...)
	return out
}

// Values maps a field name to its parsed value; nil means absent/null.
type Values map[string]*float64

// Resolve filters raw submitted values down to the fields relevant to
// category. Empty or missing values resolve to nil; unparseable values
// resolve to nil with a logged warning rather than failing the request.
func Resolve(category string, raw map[string]string) Values {
	out := make(Values)
	for _, field := range Fields(category) {
		s, ok := raw[field]
		if !ok || strings.TrimSpace(s) == "" {
			out[field] = nil
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			log.Printf("WARN: could not convert %s value %q to float: %v", field, s, err)
			out[field] = nil
			continue
		}
		out[field] = &v
	}
	return out
}
