// Package detect implements the drop classification scorer that decides
// whether a community post announces a real product drop.
package detect

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/fragdrop/fragwatch/internal/domain/model"
)

// Signal weights. Hand-tuned values; changing them changes classification
// outcomes, so they are fixed here rather than exposed as configuration.
const (
	weightTrustedAuthor    = 0.6
	weightTitleRestock     = 0.5
	weightTimePattern      = 0.3
	weightVendorPattern    = 0.3
	weightPrimaryKeyword   = 0.15
	weightSecondaryKeyword = 0.05
	weightVendorAuthor     = 0.2
	weightFlairRestock     = 0.4
	weightFlairIndicator   = 0.2
	weightBodyLink         = 0.1

	primaryMatchCap   = 3
	secondaryMatchCap = 5

	// DefaultThreshold is the confidence at or above which a post is a drop.
	DefaultThreshold = 0.4
)

// flairIndicators are the generic flair words that earn the smaller flair
// bonus when the flair does not mention a restock outright.
var flairIndicators = []string{"drop", "release", "news", "announcement"}

// linkPatterns match purchase links in a post body, including markdown
// link syntax.
var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://\S+`),
	regexp.MustCompile(`www\.\S+`),
	regexp.MustCompile(`\[.*\]\(.*\)`),
}

// Option applies a configuration option to the Classifier.
type Option func(*settings)

// settings collects raw configuration before compilation.
type settings struct {
	threshold         float64
	primaryKeywords   []string
	secondaryKeywords []string
	exclusionPatterns []string
	vendorPatterns    []string
	timePatterns      []string
	trustedAuthors    []string
	knownVendors      []string
}

// WithThreshold overrides the decision threshold.
func WithThreshold(t float64) Option {
	return func(s *settings) {
		if t > 0 {
			s.threshold = t
		}
	}
}

// WithPrimaryKeywords sets the primary keyword list.
func WithPrimaryKeywords(kw []string) Option {
	return func(s *settings) { s.primaryKeywords = kw }
}

// WithSecondaryKeywords sets the secondary keyword list.
func WithSecondaryKeywords(kw []string) Option {
	return func(s *settings) { s.secondaryKeywords = kw }
}

// WithExclusionPatterns sets the regular expressions that short-circuit
// classification to a negative decision.
func WithExclusionPatterns(patterns []string) Option {
	return func(s *settings) { s.exclusionPatterns = patterns }
}

// WithVendorPatterns sets the vendor-name regular expressions.
func WithVendorPatterns(patterns []string) Option {
	return func(s *settings) { s.vendorPatterns = patterns }
}

// WithTimePatterns sets the time-expression regular expressions.
func WithTimePatterns(patterns []string) Option {
	return func(s *settings) { s.timePatterns = patterns }
}

// WithTrustedAuthors sets the trusted-author set. Trusted authorship alone
// is sufficient to cross the decision threshold.
func WithTrustedAuthors(authors []string) Option {
	return func(s *settings) { s.trustedAuthors = authors }
}

// WithKnownVendors sets the known vendor account names.
func WithKnownVendors(vendors []string) Option {
	return func(s *settings) { s.knownVendors = vendors }
}

// Classifier scores posts against keyword, pattern, and author rules.
// Immutable after construction; safe for concurrent use.
type Classifier struct {
	threshold         float64
	primaryKeywords   []string
	secondaryKeywords []string
	exclusions        []*regexp.Regexp
	vendors           []*regexp.Regexp
	times             []*regexp.Regexp
	trustedAuthors    map[string]struct{}
	knownVendors      map[string]struct{}
}

// NewClassifier compiles the configured rules into an immutable classifier.
// An invalid regular expression fails construction.
func NewClassifier(opts ...Option) (*Classifier, error) {
	s := &settings{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(s)
	}

	c := &Classifier{
		threshold:         s.threshold,
		primaryKeywords:   lowerAll(s.primaryKeywords),
		secondaryKeywords: lowerAll(s.secondaryKeywords),
		trustedAuthors:    lowerSet(s.trustedAuthors),
		knownVendors:      lowerSet(s.knownVendors),
	}

	var err error
	if c.exclusions, err = compileAll("exclusion", s.exclusionPatterns); err != nil {
		return nil, err
	}
	if c.vendors, err = compileAll("vendor", s.vendorPatterns); err != nil {
		return nil, err
	}
	if c.times, err = compileAll("time", s.timePatterns); err != nil {
		return nil, err
	}
	return c, nil
}

// Threshold returns the configured decision threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Classify scores a single post. Pure function of the post text, author,
// and flair; deterministic and side-effect free.
func (c *Classifier) Classify(post model.SocialPost) model.DropDecision {
	title := strings.ToLower(post.Title)
	body := strings.ToLower(post.Body)
	flair := strings.ToLower(post.Flair)
	author := strings.ToLower(post.Author)
	corpus := title + " " + body + " " + flair

	// Exclusion takes priority over every positive signal.
	for _, re := range c.exclusions {
		if re.MatchString(corpus) {
			return model.DropDecision{
				Explanation: model.Explanation{Excluded: true},
			}
		}
	}

	var score float64
	var expl model.Explanation

	trusted := author != "" && author != model.DeletedAuthor && contains(c.trustedAuthors, author)
	if trusted {
		score += weightTrustedAuthor
		expl.TrustedAuthor = true
	}

	if strings.Contains(title, "restock") {
		score += weightTitleRestock
		expl.TitleRestock = true
	}

	for _, re := range c.times {
		if re.MatchString(corpus) {
			score += weightTimePattern
			expl.TimePattern = true
			break
		}
	}

	expl.PrimaryMatches = keywordMatches(corpus, c.primaryKeywords)
	if n := len(expl.PrimaryMatches); n > 0 {
		score += weightPrimaryKeyword * float64(min(n, primaryMatchCap))
	}

	expl.SecondaryMatches = keywordMatches(corpus, c.secondaryKeywords)
	if n := len(expl.SecondaryMatches); n > 0 {
		score += weightSecondaryKeyword * float64(min(n, secondaryMatchCap))
	}

	for _, re := range c.vendors {
		if re.MatchString(corpus) {
			score += weightVendorPattern
			expl.VendorPattern = true
			break
		}
	}

	// Vendor authorship is not stacked on top of the trusted bonus when the
	// same account appears in both sets.
	if !trusted && author != "" && author != model.DeletedAuthor && contains(c.knownVendors, author) {
		score += weightVendorAuthor
		expl.KnownVendorAuthor = true
	}

	if flair != "" {
		switch {
		case strings.Contains(flair, "restock"):
			score += weightFlairRestock
			expl.FlairMatch = post.Flair
		case containsAny(flair, flairIndicators):
			score += weightFlairIndicator
			expl.FlairMatch = post.Flair
		}
	}

	for _, re := range linkPatterns {
		if re.MatchString(body) {
			score += weightBodyLink
			expl.LinkPresent = true
			break
		}
	}

	confidence := math.Max(0, math.Min(score, 1.0))
	return model.DropDecision{
		IsDrop:      confidence >= c.threshold,
		Confidence:  confidence,
		Explanation: expl,
	}
}

// ClassifyAll applies Classify to each post in order and returns the
// positive decisions, preserving input order. Deduplication against
// previously seen posts is the ingestion layer's responsibility.
func (c *Classifier) ClassifyAll(posts []model.SocialPost) []model.Match {
	var matches []model.Match
	for _, post := range posts {
		decision := c.Classify(post)
		if decision.IsDrop {
			matches = append(matches, model.Match{Post: post, Decision: decision})
		}
	}
	return matches
}

// keywordMatches returns the distinct keywords present in the corpus, in
// configured order so explanations are deterministic.
func keywordMatches(corpus string, keywords []string) []string {
	var matches []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(corpus, kw) {
			matches = append(matches, kw)
		}
	}
	return matches
}

func compileAll(kind string, patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern %q: %w", kind, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}

func lowerSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
