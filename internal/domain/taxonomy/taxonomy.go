// Package taxonomy holds the compliance categories, keyword tiers and call-type profiles
// that every scorer reads. A Taxonomy is built once and never mutated.
package taxonomy

import (
	"context"
	"sort"
	"strings"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/transcript"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// Tier is a keyword severity classification.
type Tier string

// Keyword tiers, highest priority first.
const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Tiers lists the valid tiers in priority order.
var Tiers = []Tier{TierHigh, TierMedium, TierLow}

// Priority orders tiers; higher is more severe. Unknown tiers have priority 0.
func (t Tier) Priority() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	}
	return 0
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool { return t.Priority() > 0 }

// Category is a named compliance dimension.
type Category struct {
	Name           string   `json:"name" yaml:"name" koanf:"name"`
	ExactPhrases   []string `json:"exact_phrases" yaml:"exact_phrases" koanf:"exact_phrases"`
	ConceptPhrases []string `json:"concept_phrases" yaml:"concept_phrases" koanf:"concept_phrases"`
}

func (c Category) clone() Category {
	return Category{
		Name:           c.Name,
		ExactPhrases:   append([]string(nil), c.ExactPhrases...),
		ConceptPhrases: append([]string(nil), c.ConceptPhrases...),
	}
}

// Document is the serialisable form of a taxonomy (YAML file, HTTP response).
type Document struct {
	Categories []Category          `json:"categories" yaml:"categories" koanf:"categories"`
	Keywords   map[string][]string `json:"keywords" yaml:"keywords" koanf:"keywords"`
	Profiles   map[string][]string `json:"profiles,omitempty" yaml:"profiles,omitempty" koanf:"profiles"`
}

// Taxonomy is the immutable, sanitised configuration the scorers read.
type Taxonomy struct {
	categories []Category
	keywords   map[Tier][]string
	profiles   map[string][]string
}

// FromDocument sanitises doc into a Taxonomy. Malformed entries are skipped and logged:
// blank or duplicate category names, phrases with no matchable words, unknown tiers and
// profile entries naming unknown categories. A document that leaves nothing to score
// returns ErrEmptyTaxonomy.
func FromDocument(doc Document, opts ...Option) (*Taxonomy, error) {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	ctx := context.Background()

	t := &Taxonomy{
		keywords: make(map[Tier][]string, len(Tiers)),
		profiles: make(map[string][]string, len(doc.Profiles)),
	}

	names := make(map[string]bool, len(doc.Categories))
	for _, c := range doc.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			o.log.Warn(ctx, "skipping category with empty name")
			continue
		}
		if names[name] {
			o.log.Warn(ctx, "skipping duplicate category", logger.String("category", name))
			continue
		}
		exact := cleanPhrases(ctx, o.log, name, "exact", c.ExactPhrases)
		concept := cleanPhrases(ctx, o.log, name, "concept", c.ConceptPhrases)
		if len(exact) == 0 && len(concept) == 0 {
			o.log.Warn(ctx, "skipping category with no usable phrases", logger.String("category", name))
			continue
		}
		names[name] = true
		t.categories = append(t.categories, Category{Name: name, ExactPhrases: exact, ConceptPhrases: concept})
	}

	keys := make([]string, 0, len(doc.Keywords))
	for key := range doc.Keywords {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		tier := Tier(strings.ToLower(strings.TrimSpace(key)))
		if !tier.Valid() {
			o.log.Warn(ctx, "skipping unknown keyword tier", logger.String("tier", key))
			continue
		}
		t.keywords[tier] = append(t.keywords[tier], cleanPhrases(ctx, o.log, string(tier), "keyword", doc.Keywords[key])...)
	}

	for callType, cats := range doc.Profiles {
		callType = strings.TrimSpace(callType)
		if callType == "" {
			continue
		}
		var kept []string
		for _, name := range cats {
			name = strings.TrimSpace(name)
			if !names[name] {
				o.log.Warn(ctx, "profile names unknown category",
					logger.String("call_type", callType), logger.String("category", name))
				continue
			}
			kept = append(kept, name)
		}
		t.profiles[callType] = kept
	}

	if len(t.categories) == 0 && t.keywordCount() == 0 {
		return nil, ErrEmptyTaxonomy
	}
	return t, nil
}

// New builds a Taxonomy from categories and tiered keywords with no call-type profiles.
func New(categories []Category, keywords map[Tier][]string, opts ...Option) (*Taxonomy, error) {
	doc := Document{Categories: categories, Keywords: make(map[string][]string, len(keywords))}
	for tier, phrases := range keywords {
		doc.Keywords[string(tier)] = phrases
	}
	return FromDocument(doc, opts...)
}

func cleanPhrases(ctx context.Context, log logger.Logger, owner, kind string, phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if len(transcript.NormalizePhrase(p)) == 0 {
			log.Warn(ctx, "skipping malformed phrase",
				logger.String("owner", owner), logger.String("kind", kind), logger.String("phrase", p))
			continue
		}
		out = append(out, p)
	}
	return out
}

func (t *Taxonomy) keywordCount() int {
	n := 0
	for _, phrases := range t.keywords {
		n += len(phrases)
	}
	return n
}

// Categories returns a copy of all categories in configured order.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		out[i] = c.clone()
	}
	return out
}

// ForCallType returns the categories scored for a call type. An empty or unknown
// call type scores every category.
func (t *Taxonomy) ForCallType(callType string) []Category {
	names, ok := t.profiles[strings.TrimSpace(callType)]
	if !ok {
		return t.Categories()
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Category
	for _, c := range t.categories {
		if want[c.Name] {
			out = append(out, c.clone())
		}
	}
	return out
}

// Keywords returns a copy of the keyword phrases for a tier.
func (t *Taxonomy) Keywords(tier Tier) []string {
	return append([]string(nil), t.keywords[tier]...)
}

// CallTypes returns the call types that have a profile, sorted.
func (t *Taxonomy) CallTypes() []string {
	out := make([]string, 0, len(t.profiles))
	for k := range t.profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Document returns the serialisable form of the taxonomy.
func (t *Taxonomy) Document() Document {
	doc := Document{
		Categories: t.Categories(),
		Keywords:   make(map[string][]string, len(t.keywords)),
	}
	for tier, phrases := range t.keywords {
		if len(phrases) > 0 {
			doc.Keywords[string(tier)] = append([]string(nil), phrases...)
		}
	}
	if len(t.profiles) > 0 {
		doc.Profiles = make(map[string][]string, len(t.profiles))
		for k, v := range t.profiles {
			doc.Profiles[k] = append([]string(nil), v...)
		}
	}
	return doc
}
