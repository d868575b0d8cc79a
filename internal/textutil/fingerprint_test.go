package textutil

import (
	"math"
	"testing"
)

func TestSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
		want float64
	}{
		{"both nil", nil, nil, 0},
		{"a nil", nil, NewFingerprint("breaking bad"), 0},
		{"b nil", NewFingerprint("breaking bad"), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Similarity(tt.b)
			if got != tt.want {
				t.Errorf("Similarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarityIdentical(t *testing.T) {
	text := "the walking dead"
	a := NewFingerprint(text)
	b := NewFingerprint(text)

	got := a.Similarity(b)
	if got != 1.0 {
		t.Errorf("Similarity(identical) = %v, want 1.0", got)
	}
}

func TestSimilarityCompleteDifferent(t *testing.T) {
	a := NewFingerprint("breaking bad")
	b := NewFingerprint("stranger things")

	got := a.Similarity(b)
	if got != 0 {
		t.Errorf("Similarity(different) = %v, want 0", got)
	}
}

func TestSimilarityPartialOverlap(t *testing.T) {
	a := NewFingerprint("the walking dead")
	b := NewFingerprint("fear the walking dead")

	got := a.Similarity(b)
	if got <= 0 || got >= 1 {
		t.Errorf("Similarity(partial) = %v, want between 0 and 1", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a := NewFingerprint("doctor who")
	b := NewFingerprint("doctor strange tales")

	ab := a.Similarity(b)
	ba := b.Similarity(a)

	if ab != ba {
		t.Errorf("Similarity not symmetric: (%v, %v)", ab, ba)
	}
}

func TestSimilarityZeroNorm(t *testing.T) {
	a := &Fingerprint{tokens: map[string]float64{}, norm: 0}
	b := NewFingerprint("the wire")

	got := a.Similarity(b)
	if got != 0 {
		t.Errorf("Similarity(zero norm) = %v, want 0", got)
	}
}

func TestNewFingerprintEmpty(t *testing.T) {
	fp := NewFingerprint("")
	if fp != nil {
		t.Error("expected nil for empty text")
	}
}

func TestNewFingerprintSingleCharTokens(t *testing.T) {
	fp := NewFingerprint("a b c")
	if fp != nil {
		t.Error("expected nil for text with only single-character tokens")
	}
}

func TestNewFingerprintFromTokens(t *testing.T) {
	fp := NewFingerprintFromTokens([]string{"the", "walking", "dead"})
	if fp == nil {
		t.Fatal("expected fingerprint, got nil")
	}
	if fp.TokenCount() != 3 {
		t.Errorf("TokenCount() = %d, want 3", fp.TokenCount())
	}
	if fp.Similarity(NewFingerprint("The Walking Dead")) != 1.0 {
		t.Error("expected pre-tokenized and text fingerprints to match")
	}

	if NewFingerprintFromTokens(nil) != nil {
		t.Error("expected nil for empty token list")
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// "who who doctor" -> who:2, doctor:1
	// norm = sqrt(2^2 + 1^2) = sqrt(5)
	fp := NewFingerprint("who who doctor")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}

	expectedNorm := math.Sqrt(5)
	if math.Abs(fp.norm-expectedNorm) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, expectedNorm)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple words",
			input: "Breaking Bad",
			want:  []string{"breaking", "bad"},
		},
		{
			name:  "keeps two-letter words",
			input: "a of the walking dead",
			want:  []string{"of", "the", "walking", "dead"},
		},
		{
			name:  "handles punctuation",
			input: "It's Always Sunny, in Philadelphia!",
			want:  []string{"it", "always", "sunny", "in", "philadelphia"},
		},
		{
			name:  "handles numbers",
			input: "Brooklyn99 12monkeys",
			want:  []string{"brooklyn99", "12monkeys"},
		},
		{
			name:  "empty string",
			input: "",
			want:  []string{},
		},
		{
			name:  "only single-character tokens",
			input: "a b c",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize() = %v (len %d), want %v (len %d)",
					got, len(got), tt.want, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFingerprintTokenCount(t *testing.T) {
	tests := []struct {
		name string
		fp   *Fingerprint
		want int
	}{
		{
			name: "nil fingerprint",
			fp:   nil,
			want: 0,
		},
		{
			name: "unique tokens",
			fp:   NewFingerprint("better call saul"),
			want: 3,
		},
		{
			name: "repeated tokens",
			fp:   NewFingerprint("dead dead walking walking walking"),
			want: 2, // unique count
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fp.TokenCount()
			if got != tt.want {
				t.Errorf("TokenCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIDFDownweightsCommonTerms(t *testing.T) {
	titles := []string{
		"the walking dead",
		"the wire",
		"the office",
		"breaking bad",
	}
	corpus := NewCorpus()
	prints := make([]*Fingerprint, 0, len(titles))
	for _, title := range titles {
		fp := NewFingerprint(title)
		corpus.Add(fp)
		prints = append(prints, fp)
	}
	idf := corpus.IDF()
	if idf == nil {
		t.Fatal("expected IDF weights")
	}
	if idf["the"] >= idf["breaking"] {
		t.Errorf("idf[the] = %v should be below idf[breaking] = %v", idf["the"], idf["breaking"])
	}

	// Weighted similarity between two "the ..." titles drops relative to raw.
	raw := prints[0].Similarity(prints[1])
	weighted := prints[0].WithIDF(idf).Similarity(prints[1].WithIDF(idf))
	if weighted >= raw {
		t.Errorf("weighted similarity %v should be below raw %v", weighted, raw)
	}
}
