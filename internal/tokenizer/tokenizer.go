package tokenizer

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultMinTokenLength is the shortest series token kept after filtering.
const DefaultMinTokenLength = 2

// Episode identifies where a file falls in a series. Season is absent for
// flat-numbered long-running series.
type Episode struct {
	Season    int
	Number    int
	HasSeason bool
}

// Quality collects the release hints found anywhere in the filename.
type Quality struct {
	Resolution string
	Codec      string
	Source     string
}

// Result is the tokenizer output for one filename.
type Result struct {
	SeriesTokens   []string
	Episode        *Episode
	Quality        Quality
	NormalizedBase string
}

var (
	leadingTagPattern = regexp.MustCompile(`^\s*(\[[^\]]*\]|\([^)]*\))\s*`)
	separatorPattern  = regexp.MustCompile(`[._]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	yearPattern       = regexp.MustCompile(`^(19|20)\d{2}$`)

	// Episode marker patterns, in precedence order. Within one pattern the
	// earliest match in the filename wins.
	seasonEpisodePattern = regexp.MustCompile(`(?i)\bS(\d{1,2})E(\d{1,3})\b`)
	crossPattern         = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{1,3})\b`)
	verbosePattern       = regexp.MustCompile(`(?i)\bSeason\s+(\d+)\s+Episode\s+(\d+)\b`)
	bareEpisodePattern   = regexp.MustCompile(`(?i)\bE(\d{1,3})\b`)
)

var resolutionTokens = map[string]struct{}{
	"1080p": {}, "720p": {}, "2160p": {}, "4k": {},
}

var sourceTokens = map[string]struct{}{
	"hdtv": {}, "bluray": {}, "webrip": {}, "web-dl": {}, "web-dlmux": {},
}

var codecTokens = map[string]struct{}{
	"x264": {}, "x265": {}, "h264": {}, "h265": {}, "hevc": {}, "avc": {},
}

var stopTokens = map[string]struct{}{
	// audio
	"aac": {}, "ac3": {}, "dts": {}, "flac": {},
	// language
	"ita": {}, "eng": {}, "sub": {}, "dub": {}, "multi": {},
	// release
	"final": {}, "repack": {}, "proper": {}, "extended": {}, "remux": {},
}

// Tokenize runs the full pipeline with the default minimum token length.
func Tokenize(filename string) Result {
	return TokenizeWith(filename, DefaultMinTokenLength)
}

// TokenizeWith runs the full pipeline with an explicit minimum token length.
func TokenizeWith(filename string, minTokenLength int) Result {
	if minTokenLength <= 0 {
		minTokenLength = DefaultMinTokenLength
	}

	base := norm.NFC.String(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	// Leading tracker tags are stripped only when real content follows.
	if match := leadingTagPattern.FindString(base); match != "" {
		rest := base[len(match):]
		if containsAlphanumeric(rest) {
			base = rest
		}
	}

	base = separatorPattern.ReplaceAllString(base, " ")
	base = whitespacePattern.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	result := Result{NormalizedBase: strings.ToLower(base)}

	episode, markerStart := findEpisodeMarker(base)
	result.Episode = episode

	candidate := base
	if episode != nil && markerStart >= 0 {
		candidate = strings.TrimSpace(base[:markerStart])
	}
	tokens := strings.Fields(candidate)

	if episode == nil {
		tokens = truncateAtTrailingYear(tokens)
		// Flat-numbered long-running series carry a bare trailing episode
		// index instead of a SxxEyy marker.
		if n, ok := flatEpisodeIndex(tokens); ok {
			result.Episode = &Episode{Number: n}
			tokens = tokens[:len(tokens)-1]
		}
	}

	result.Quality = extractQuality(strings.Fields(base))
	result.SeriesTokens = filterSeriesTokens(tokens, minTokenLength)
	return result
}

func containsAlphanumeric(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func findEpisodeMarker(base string) (*Episode, int) {
	type parsed func(groups []string) *Episode

	twoGroup := func(groups []string) *Episode {
		season, err1 := strconv.Atoi(groups[1])
		number, err2 := strconv.Atoi(groups[2])
		if err1 != nil || err2 != nil {
			return nil
		}
		return &Episode{Season: season, Number: number, HasSeason: true}
	}
	oneGroup := func(groups []string) *Episode {
		number, err := strconv.Atoi(groups[1])
		if err != nil {
			return nil
		}
		return &Episode{Number: number}
	}

	patterns := []struct {
		re    *regexp.Regexp
		parse parsed
	}{
		{seasonEpisodePattern, twoGroup},
		{crossPattern, twoGroup},
		{verbosePattern, twoGroup},
		{bareEpisodePattern, oneGroup},
	}

	for _, p := range patterns {
		loc := p.re.FindStringSubmatchIndex(base)
		if loc == nil {
			continue
		}
		groups := make([]string, 0, 3)
		for i := 0; i < len(loc); i += 2 {
			if loc[i] < 0 {
				groups = append(groups, "")
				continue
			}
			groups = append(groups, base[loc[i]:loc[i+1]])
		}
		if episode := p.parse(groups); episode != nil {
			return episode, loc[0]
		}
	}
	return nil, -1
}

func truncateAtTrailingYear(tokens []string) []string {
	for i, token := range tokens {
		if i > 0 && yearPattern.MatchString(token) {
			return tokens[:i]
		}
	}
	return tokens
}

// flatEpisodeIndex recognizes a bare trailing integer as an episode number
// when it has three or more digits or a value of at least 100, which rules
// out stray counters while catching long-running series numbering.
func flatEpisodeIndex(tokens []string) (int, bool) {
	if len(tokens) < 2 {
		return 0, false
	}
	last := tokens[len(tokens)-1]
	if !isNumeric(last) {
		return 0, false
	}
	value, err := strconv.Atoi(last)
	if err != nil {
		return 0, false
	}
	if len(last) >= 3 || value >= 100 {
		return value, true
	}
	return 0, false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func extractQuality(tokens []string) Quality {
	var quality Quality
	for _, token := range tokens {
		lowered := strings.ToLower(strings.TrimPrefix(token, "-"))
		if _, ok := resolutionTokens[lowered]; ok && quality.Resolution == "" {
			quality.Resolution = lowered
		}
		if _, ok := codecTokens[lowered]; ok && quality.Codec == "" {
			quality.Codec = lowered
		}
		if _, ok := sourceTokens[lowered]; ok && quality.Source == "" {
			quality.Source = lowered
		}
	}
	return quality
}

func filterSeriesTokens(tokens []string, minTokenLength int) []string {
	series := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lowered := strings.ToLower(strings.TrimPrefix(token, "-"))
		if len(lowered) < minTokenLength {
			continue
		}
		if isStopToken(lowered) {
			continue
		}
		if isNumeric(lowered) {
			continue
		}
		series = append(series, lowered)
	}
	return series
}

func isStopToken(token string) bool {
	if _, ok := stopTokens[token]; ok {
		return true
	}
	if _, ok := resolutionTokens[token]; ok {
		return true
	}
	if _, ok := codecTokens[token]; ok {
		return true
	}
	if _, ok := sourceTokens[token]; ok {
		return true
	}
	return false
}
