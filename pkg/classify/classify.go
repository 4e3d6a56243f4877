// Package classify enriches raw observation text with a category, tags
// and an importance score using embedded pattern rules.
package classify

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/engramdb/engram/pkg/mathutil"
)

//go:embed rules.yaml
var defaultRules []byte

// DefaultCategory is assigned when no category pattern matches.
const DefaultCategory = "note"

// MaxTags caps how many tags a single observation receives.
const MaxTags = 10

const (
	baseImportance   = 0.5
	highSignalBoost  = 0.15
	mediumBoost      = 0.08
	lowSignalPenalty = 0.05
)

type ruleFile struct {
	Categories map[string][]string `yaml:"categories"`
	Tags       map[string]string   `yaml:"tags"`
	Importance struct {
		High   []string `yaml:"high"`
		Medium []string `yaml:"medium"`
		Low    []string `yaml:"low"`
	} `yaml:"importance"`
}

type tagRule struct {
	name    string
	pattern *regexp.Regexp
}

// Classifier scores text against compiled rule patterns.
type Classifier struct {
	categories map[string][]*regexp.Regexp
	tags       []tagRule
	high       []*regexp.Regexp
	medium     []*regexp.Regexp
	low        []*regexp.Regexp
}

// New builds a classifier from the embedded default rules.
func New() *Classifier {
	c, err := parse(defaultRules)
	if err != nil {
		// The embedded rules are validated by tests; a parse failure
		// here is a build defect.
		panic(fmt.Sprintf("classify: embedded rules invalid: %v", err))
	}
	return c
}

// NewFromFile builds a classifier from a YAML rule file, for
// deployments that tune the defaults.
func NewFromFile(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Classifier, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	c := &Classifier{
		categories: make(map[string][]*regexp.Regexp, len(rf.Categories)),
	}

	compile := func(pattern string) (*regexp.Regexp, error) {
		return regexp.Compile("(?i)" + pattern)
	}

	for category, patterns := range rf.Categories {
		for _, p := range patterns {
			re, err := compile(p)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", category, err)
			}
			c.categories[category] = append(c.categories[category], re)
		}
	}

	// Sorted for deterministic tag order.
	names := make([]string, 0, len(rf.Tags))
	for name := range rf.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		re, err := compile(rf.Tags[name])
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", name, err)
		}
		c.tags = append(c.tags, tagRule{name: name, pattern: re})
	}

	for _, p := range rf.Importance.High {
		re, err := compile(p)
		if err != nil {
			return nil, fmt.Errorf("importance high: %w", err)
		}
		c.high = append(c.high, re)
	}
	for _, p := range rf.Importance.Medium {
		re, err := compile(p)
		if err != nil {
			return nil, fmt.Errorf("importance medium: %w", err)
		}
		c.medium = append(c.medium, re)
	}
	for _, p := range rf.Importance.Low {
		re, err := compile(p)
		if err != nil {
			return nil, fmt.Errorf("importance low: %w", err)
		}
		c.low = append(c.low, re)
	}

	return c, nil
}

// Category returns the best-scoring category for text, or
// DefaultCategory when nothing matches. Each pattern contributes its
// match count to the category score.
func (c *Classifier) Category(text string) string {
	best := DefaultCategory
	bestScore := 0

	names := make([]string, 0, len(c.categories))
	for name := range c.categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		score := 0
		for _, re := range c.categories[name] {
			score += len(re.FindAllStringIndex(text, -1))
		}
		if score > bestScore {
			best = name
			bestScore = score
		}
	}

	return best
}

// Tags returns up to MaxTags matching tags in deterministic order.
func (c *Classifier) Tags(text string) []string {
	var tags []string
	for _, tr := range c.tags {
		if tr.pattern.MatchString(text) {
			tags = append(tags, tr.name)
			if len(tags) == MaxTags {
				break
			}
		}
	}
	return tags
}

// Importance scores text in [0.1, 1.0]. The score starts at 0.5,
// moves per matched signal group and gains a bonus for longer, more
// detailed text.
func (c *Classifier) Importance(text string) float64 {
	score := baseImportance

	for _, re := range c.high {
		if re.MatchString(text) {
			score += highSignalBoost
		}
	}
	for _, re := range c.medium {
		if re.MatchString(text) {
			score += mediumBoost
		}
	}
	for _, re := range c.low {
		if re.MatchString(text) {
			score -= lowSignalPenalty
		}
	}

	switch {
	case len(text) > 500:
		score += 0.1
	case len(text) > 200:
		score += 0.05
	}

	return mathutil.ClampFloat(score, 0.1, 1.0)
}
