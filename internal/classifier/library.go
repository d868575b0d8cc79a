package classifier

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mediabutler/internal/textutil"
)

// Library matches token fingerprints against the known series titles with
// IDF-weighted cosine similarity. It is the in-process stand-in for the
// external embedding model: nearest neighbour over the title corpus, with
// the similarity score reported as confidence.
type Library struct {
	mu              sync.RWMutex
	entries         []libraryEntry
	maxAlternatives int
}

type libraryEntry struct {
	category    string
	fingerprint *textutil.Fingerprint
}

// NewLibrary builds a classifier over the given category titles.
// maxAlternatives caps the ranked candidates returned beyond the best match.
func NewLibrary(titles []string, maxAlternatives int) *Library {
	if maxAlternatives < 0 {
		maxAlternatives = 0
	}
	lib := &Library{maxAlternatives: maxAlternatives}
	lib.Reload(titles)
	return lib
}

// Reload swaps the title corpus. Safe to call while classifications run.
func (l *Library) Reload(titles []string) {
	corpus := textutil.NewCorpus()
	raw := make([]libraryEntry, 0, len(titles))
	for _, title := range titles {
		trimmed := strings.TrimSpace(title)
		if trimmed == "" {
			continue
		}
		fp := textutil.NewFingerprint(trimmed)
		if fp == nil {
			continue
		}
		corpus.Add(fp)
		raw = append(raw, libraryEntry{category: strings.ToUpper(trimmed), fingerprint: fp})
	}

	idf := corpus.IDF()
	entries := make([]libraryEntry, 0, len(raw))
	for _, entry := range raw {
		weighted := entry.fingerprint.WithIDF(idf)
		if weighted == nil {
			weighted = entry.fingerprint
		}
		entries = append(entries, libraryEntry{category: entry.category, fingerprint: weighted})
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
}

// Classify scores the tokens against every known title and returns the best
// match plus ranked alternatives. An empty corpus or empty tokens yield
// ("UNKNOWN", 0).
func (l *Library) Classify(ctx context.Context, tokens []string, filename string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	probe := textutil.NewFingerprintFromTokens(tokens)
	if probe == nil {
		probe = textutil.NewFingerprint(filename)
	}
	if probe == nil {
		return Result{Category: Unknown}, nil
	}

	l.mu.RLock()
	entries := l.entries
	maxAlternatives := l.maxAlternatives
	l.mu.RUnlock()

	scored := make([]Alternative, 0, len(entries))
	for _, entry := range entries {
		score := probe.Similarity(entry.fingerprint)
		if score <= 0 {
			continue
		}
		scored = append(scored, Alternative{Category: entry.category, Confidence: score})
	}
	if len(scored) == 0 {
		return Result{Category: Unknown}, nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Confidence != scored[j].Confidence {
			return scored[i].Confidence > scored[j].Confidence
		}
		return scored[i].Category < scored[j].Category
	})

	best := scored[0]
	alternatives := scored[1:]
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}
	return Result{
		Category:     best.Category,
		Confidence:   best.Confidence,
		Alternatives: alternatives,
	}, nil
}
