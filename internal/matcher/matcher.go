// Package matcher maps free-text photo descriptions onto expected BIM
// elements using keyword and fuzzy matching.
package matcher

import (
	"fmt"
	"strings"

	"virag/internal/core"
	"virag/pkg/domain"
)

// DefaultFuzzyThreshold is the minimum partial-ratio score (0-100) for a
// fuzzy keyword match to count as a detection.
const DefaultFuzzyThreshold = 80

// elementKeywords lists recognition vocabulary per element type, mixing
// English and Portuguese site terminology.
var elementKeywords = map[string][]string{
	"wall":       {"wall", "parede", "alvenaria", "masonry", "muro", "divisa"},
	"slab":       {"slab", "laje", "floor", "piso", "pavimento", "deck"},
	"column":     {"column", "pilar", "coluna", "suporte", "apoio"},
	"beam":       {"beam", "viga", "trave"},
	"foundation": {"foundation", "fundação", "footing", "pile", "sapata", "estaca", "radier"},
	"stair":      {"stair", "escada", "stairs", "degrau", "rampa"},
	"roof":       {"roof", "telhado", "cobertura", "telha"},
	"door":       {"door", "porta", "acesso", "entrada"},
	"window":     {"window", "janela", "abertura", "esquadria"},
}

var (
	completedKeywords  = []string{"completed", "finished", "concluído", "finalizado", "pronto"}
	inProgressKeywords = []string{"progress", "construction", "building", "em andamento", "construção"}
	notStartedKeywords = []string{"not started", "missing", "absent", "não iniciado", "ausente"}
)

// Matcher compares photo descriptions against a project's expected elements.
type Matcher struct {
	threshold int
	log       core.Logger
}

// Option customizes a Matcher.
type Option func(*Matcher)

// WithFuzzyThreshold overrides the fuzzy match score threshold (0-100).
func WithFuzzyThreshold(t int) Option {
	return func(m *Matcher) {
		if t > 0 && t <= 100 {
			m.threshold = t
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(log core.Logger) Option {
	return func(m *Matcher) {
		if log != nil {
			m.log = log
		}
	}
}

// New constructs a Matcher with default settings.
func New(opts ...Option) *Matcher {
	m := &Matcher{threshold: DefaultFuzzyThreshold, log: core.NoopLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Compare matches the description against the project's expected elements.
// Exact keyword hits are reported with high confidence; fuzzy hits with
// medium. When targetIDs is non-empty only those elements are considered.
func (m *Matcher) Compare(description string, project domain.Project, targetIDs []string) []domain.DetectedElement {
	targets := make(map[string]struct{}, len(targetIDs))
	for _, id := range targetIDs {
		targets[id] = struct{}{}
	}
	descLower := strings.ToLower(description)

	var detected []domain.DetectedElement
	for _, element := range project.Elements {
		if len(targets) > 0 {
			if _, ok := targets[element.ElementID]; !ok {
				continue
			}
		}
		elementType := strings.ToLower(element.ElementType)
		elementName := strings.ToLower(element.Name)

		matched := false
		confidence := domain.ConfidenceLow
		method := "none"

		for typeKey, keywords := range elementKeywords {
			if !strings.Contains(elementType, typeKey) {
				continue
			}
			for _, keyword := range keywords {
				if strings.Contains(descLower, keyword) {
					matched = true
					confidence = domain.ConfidenceHigh
					method = "exact"
					break
				}
			}
			if matched {
				break
			}
		}

		if !matched {
			probe := elementName
			if probe == "" {
				probe = elementType
			}
			for typeKey, keywords := range elementKeywords {
				if !strings.Contains(elementType, typeKey) {
					continue
				}
				keyword, score := bestMatch(probe, keywords)
				if score >= m.threshold && PartialRatio(keyword, descLower) >= m.threshold {
					matched = true
					confidence = domain.ConfidenceMedium
					method = "fuzzy"
					break
				}
			}
		}

		if !matched {
			continue
		}
		detected = append(detected, domain.DetectedElement{
			ElementID:    element.ElementID,
			ElementType:  element.ElementType,
			ElementName:  element.Name,
			CountVisible: 1,
			Status:       DetermineStatus(descLower),
			Confidence:   confidence,
			Description:  fmt.Sprintf("%s detected (%s match)", element.ElementType, method),
		})
		m.log.Debug("element detected",
			"element_id", element.ElementID,
			"type", element.ElementType,
			"confidence", string(confidence),
			"method", method)
	}
	return detected
}

// DetermineStatus infers a construction status from description keywords,
// defaulting to in_progress.
func DetermineStatus(description string) domain.ConstructionStatus {
	for _, kw := range completedKeywords {
		if strings.Contains(description, kw) {
			return domain.ConstructionCompleted
		}
	}
	for _, kw := range inProgressKeywords {
		if strings.Contains(description, kw) {
			return domain.ConstructionInProgress
		}
	}
	for _, kw := range notStartedKeywords {
		if strings.Contains(description, kw) {
			return domain.ConstructionNotStarted
		}
	}
	return domain.ConstructionInProgress
}

// Merge combines two detection lists. Primary results win; fallback entries
// only fill in element ids and element types the primary list missed, so a
// keyword hit never double-counts an element the model already reported.
func Merge(primary, fallback []domain.DetectedElement) []domain.DetectedElement {
	seenIDs := make(map[string]struct{}, len(primary))
	seenTypes := make(map[string]struct{}, len(primary))
	out := make([]domain.DetectedElement, 0, len(primary)+len(fallback))
	for _, det := range primary {
		if det.ElementID != "" {
			seenIDs[det.ElementID] = struct{}{}
		}
		seenTypes[strings.ToLower(det.ElementType)] = struct{}{}
		out = append(out, det)
	}
	for _, det := range fallback {
		if det.ElementID != "" {
			if _, dup := seenIDs[det.ElementID]; dup {
				continue
			}
		}
		if _, dup := seenTypes[strings.ToLower(det.ElementType)]; dup {
			continue
		}
		out = append(out, det)
	}
	return out
}

// bestMatch returns the keyword with the highest partial-ratio score against
// probe.
func bestMatch(probe string, keywords []string) (string, int) {
	best := ""
	bestScore := 0
	for _, kw := range keywords {
		if score := PartialRatio(probe, kw); score > bestScore {
			best = kw
			bestScore = score
		}
	}
	return best, bestScore
}

// PartialRatio scores the best alignment of the shorter string against any
// equal-length window of the longer one, 0-100.
func PartialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		if score := simRatio(shorter, longer[i:i+len(shorter)]); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// simRatio is a normalized indel similarity: insertions and deletions cost 1,
// substitutions 2.
func simRatio(a, b []rune) int {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 2
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	dist := prev[len(b)]
	return int(float64(total-dist) / float64(total) * 100)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
