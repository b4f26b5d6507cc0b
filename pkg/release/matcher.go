package release

import (
	"regexp"

	"github.com/hbollon/go-edlib"
)

var numberRegex = regexp.MustCompile(`\b(\d+)\b`)

// MatchConfidence is the confidence level of a title match.
type MatchConfidence int

const (
	ConfidenceNone   MatchConfidence = iota // score < 0.70
	ConfidenceLow                           // score >= 0.70
	ConfidenceMedium                        // score >= 0.85
	ConfidenceHigh                          // score >= 0.95
)

func (c MatchConfidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// MatchResult is the best candidate for a title.
type MatchResult struct {
	Title      string
	Score      float64 // Jaro-Winkler similarity, 0..1
	Confidence MatchConfidence
}

// MatchTitle finds the candidate closest to title. Both sides are cleaned
// first; a shared sequence number nudges the score up, a differing one down.
// Empty candidates are ignored.
func MatchTitle(title string, candidates []string) MatchResult {
	clean := CleanTitle(title)
	nums := numberRegex.FindAllString(clean, -1)

	var best MatchResult
	for _, candidate := range candidates {
		cc := CleanTitle(candidate)
		if cc == "" {
			continue
		}
		score := float64(edlib.JaroWinklerSimilarity(clean, cc))
		score = adjustScoreForNumbers(score, nums, numberRegex.FindAllString(cc, -1))
		if score > best.Score {
			best = MatchResult{Title: candidate, Score: score}
		}
	}

	switch {
	case best.Score >= 0.95:
		best.Confidence = ConfidenceHigh
	case best.Score >= 0.85:
		best.Confidence = ConfidenceMedium
	case best.Score >= 0.70:
		best.Confidence = ConfidenceLow
	default:
		best = MatchResult{Score: best.Score}
	}
	return best
}

func adjustScoreForNumbers(score float64, titleNums, candidateNums []string) float64 {
	if len(titleNums) == 0 {
		return score
	}
	if len(candidateNums) == 0 {
		return score * 0.85
	}
	have := make(map[string]bool, len(candidateNums))
	for _, n := range candidateNums {
		have[n] = true
	}
	for _, n := range titleNums {
		if have[n] {
			return min(score*1.05, 1.0)
		}
	}
	return score * 0.90
}
