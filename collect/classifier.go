// Copyright 2025 The Mektep Authors
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

package collect

import (
	"fmt"
	"strings"

	"github.com/abakirov/mektep/collect/utils"
	"github.com/abakirov/mektep/yandex"
)

// Decision is the outcome of classifying a single search hit.
type Decision struct {
	Included bool   `json:"included"`
	Reason   string `json:"reason"`
}

type verdict int

const (
	// verdictExclude rejects the hit in every mode: the place is not a
	// school at all (driving schools, kindergartens, universities).
	verdictExclude verdict = iota

	// verdictSpecialty rejects the hit in strict mode only: the place is
	// a school, but teaches a single discipline rather than the general
	// curriculum.
	verdictSpecialty

	// verdictInclude accepts the hit: the place carries a general
	// education signal. Only consulted in strict mode; lenient mode
	// accepts everything excludes did not reject.
	verdictInclude
)

// rule matches one lowercase marker against the name and categories of a
// hit. Markers with spaces (" it") rely on the fields being padded with a
// space on both ends, which gives them word-boundary behavior.
type rule struct {
	term    string
	verdict verdict
	tag     string
}

// The rules are ordered and the first match wins: exclusions fire before
// specialty markers, and specialty markers fire before inclusion signals.
// Reordering them changes the meaning - "языковая школа" must hit "язы"
// before it can hit "школ".
var defaultRules = []rule{
	// Not schools at all
	{term: "автошкол", verdict: verdictExclude, tag: "автошкола"},
	{term: "вождени", verdict: verdictExclude, tag: "автошкола"},
	{term: "driv", verdict: verdictExclude, tag: "автошкола"},
	{term: "детсад", verdict: verdictExclude, tag: "детский сад"},
	{term: "детский сад", verdict: verdictExclude, tag: "детский сад"},
	{term: "сад", verdict: verdictExclude, tag: "детский сад"},
	{term: "колледж", verdict: verdictExclude, tag: "колледж"},
	{term: "университет", verdict: verdictExclude, tag: "вуз"},
	{term: "институт", verdict: verdictExclude, tag: "вуз"},

	// Schools of a single discipline, rejected in strict mode
	{term: "танц", verdict: verdictSpecialty, tag: "танцы"},
	{term: "dance", verdict: verdictSpecialty, tag: "танцы"},
	{term: "хореограф", verdict: verdictSpecialty, tag: "танцы"},
	{term: "музык", verdict: verdictSpecialty, tag: "музыка"},
	{term: "music", verdict: verdictSpecialty, tag: "музыка"},
	{term: "язы", verdict: verdictSpecialty, tag: "языковые курсы"},
	{term: "language", verdict: verdictSpecialty, tag: "языковые курсы"},
	{term: "школа искусств", verdict: verdictSpecialty, tag: "школа искусств"},
	{term: "искусств", verdict: verdictSpecialty, tag: "школа искусств"},
	{term: "дши", verdict: verdictSpecialty, tag: "школа искусств"},
	{term: "art", verdict: verdictSpecialty, tag: "школа искусств"},
	{term: "спорт", verdict: verdictSpecialty, tag: "спорт"},
	{term: "фитнес", verdict: verdictSpecialty, tag: "спорт"},
	{term: "йога", verdict: verdictSpecialty, tag: "спорт"},
	{term: "карат", verdict: verdictSpecialty, tag: "спорт"},
	{term: "таэквондо", verdict: verdictSpecialty, tag: "спорт"},
	{term: "айкидо", verdict: verdictSpecialty, tag: "спорт"},
	{term: "футбол", verdict: verdictSpecialty, tag: "спорт"},
	{term: "теннис", verdict: verdictSpecialty, tag: "спорт"},
	{term: "баскетбол", verdict: verdictSpecialty, tag: "спорт"},
	{term: " it", verdict: verdictSpecialty, tag: "IT-курсы"},
	{term: "it ", verdict: verdictSpecialty, tag: "IT-курсы"},
	{term: "айти", verdict: verdictSpecialty, tag: "IT-курсы"},
	{term: "программир", verdict: verdictSpecialty, tag: "IT-курсы"},

	// General education signals, accepted in strict mode
	{term: "общеобразовательн", verdict: verdictInclude, tag: "общеобразовательная школа"},
	{term: "гимнази", verdict: verdictInclude, tag: "гимназия"},
	{term: "лицей", verdict: verdictInclude, tag: "лицей"},
	{term: "интернат", verdict: verdictInclude, tag: "интернат"},
	{term: "мектеп", verdict: verdictInclude, tag: "мектеп"},
	{term: "школ", verdict: verdictInclude, tag: "школа"},
	{term: "school", verdict: verdictInclude, tag: "школа"},
	{term: "gymnasium", verdict: verdictInclude, tag: "гимназия"},
	{term: "lyceum", verdict: verdictInclude, tag: "лицей"},
	{term: "education", verdict: verdictInclude, tag: "образование"},
}

// Classifier decides whether a search hit is a general education school.
// In strict mode a hit needs a positive signal to pass; in lenient mode
// everything survives except the hard exclusions.
type Classifier struct {
	rules  []rule
	strict bool
}

// NewClassifier creates a classifier with the default rule set.
func NewClassifier(strict bool) *Classifier {
	return newClassifier(defaultRules, strict)
}

func newClassifier(rules []rule, strict bool) *Classifier {
	return &Classifier{
		rules:  rules,
		strict: strict,
	}
}

// Classify inspects the name and every category of the place. A marker in
// any category is as decisive as one in the name: "Автошкола" listings
// often carry an innocuous name and give themselves away only through the
// category.
func (c *Classifier) Classify(place *yandex.Place) Decision {
	name := utils.Normalize(place.Name)
	if name == "" {
		return Decision{Reason: "пустое название"}
	}

	fields := make([]string, 0, 1+len(place.Categories)+len(place.Classes))
	fields = append(fields, " "+name+" ")

	for _, category := range place.Categories {
		fields = append(fields, " "+utils.Normalize(category)+" ")
	}

	for _, class := range place.Classes {
		fields = append(fields, " "+utils.Normalize(class)+" ")
	}

	for _, r := range c.rules {
		if !c.strict && r.verdict != verdictExclude {
			continue
		}

		for _, field := range fields {
			if !strings.Contains(field, r.term) {
				continue
			}

			switch r.verdict {
			case verdictExclude, verdictSpecialty:
				return Decision{Reason: fmt.Sprintf("помечено как «%s»", r.tag)}
			case verdictInclude:
				return Decision{Included: true, Reason: fmt.Sprintf("признак «%s»", r.tag)}
			}
		}
	}

	if c.strict {
		return Decision{Reason: "нет признака общеобразовательной школы"}
	}

	return Decision{Included: true, Reason: "нет исключающих признаков"}
}
