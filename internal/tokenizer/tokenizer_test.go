package tokenizer_test

import (
	"reflect"
	"testing"

	"mediabutler/internal/tokenizer"
)

func TestTokenizeStandardEpisode(t *testing.T) {
	result := tokenizer.Tokenize("The.Walking.Dead.S11E24.FINAL.ITA.ENG.1080p.mkv")

	want := []string{"the", "walking", "dead"}
	if !reflect.DeepEqual(result.SeriesTokens, want) {
		t.Fatalf("series tokens = %v, want %v", result.SeriesTokens, want)
	}
	if result.Episode == nil || !result.Episode.HasSeason {
		t.Fatalf("expected seasoned episode, got %+v", result.Episode)
	}
	if result.Episode.Season != 11 || result.Episode.Number != 24 {
		t.Fatalf("episode = %+v, want S11E24", result.Episode)
	}
	if result.Quality.Resolution != "1080p" {
		t.Fatalf("resolution = %q, want 1080p", result.Quality.Resolution)
	}
}

func TestTokenizeMarkerVariants(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		season    int
		episode   int
		hasSeason bool
	}{
		{"sxxeyy", "Show.S01E05.mkv", 1, 5, true},
		{"cross", "Show.2x13.mkv", 2, 13, true},
		{"verbose", "Show Season 3 Episode 7.mkv", 3, 7, true},
		{"bare", "Show.E842.mkv", 0, 842, false},
		{"lowercase", "show.s04e02.hdtv.mkv", 4, 2, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := tokenizer.Tokenize(tc.filename)
			if result.Episode == nil {
				t.Fatalf("no episode found in %q", tc.filename)
			}
			if result.Episode.HasSeason != tc.hasSeason {
				t.Fatalf("HasSeason = %v, want %v", result.Episode.HasSeason, tc.hasSeason)
			}
			if result.Episode.Number != tc.episode || (tc.hasSeason && result.Episode.Season != tc.season) {
				t.Fatalf("episode = %+v, want S%02dE%02d", result.Episode, tc.season, tc.episode)
			}
		})
	}
}

func TestTokenizeEarliestMarkerWins(t *testing.T) {
	result := tokenizer.Tokenize("Show.S01E02.S03E04.mkv")
	if result.Episode == nil || result.Episode.Season != 1 || result.Episode.Number != 2 {
		t.Fatalf("expected earliest marker S01E02, got %+v", result.Episode)
	}
}

func TestTokenizeFlatNumberedSeries(t *testing.T) {
	result := tokenizer.Tokenize("One.Piece.1089.mkv")
	if !reflect.DeepEqual(result.SeriesTokens, []string{"one", "piece"}) {
		t.Fatalf("series tokens = %v", result.SeriesTokens)
	}
	if result.Episode == nil || result.Episode.HasSeason || result.Episode.Number != 1089 {
		t.Fatalf("expected flat episode 1089, got %+v", result.Episode)
	}

	// Small trailing integers are not episode markers.
	result = tokenizer.Tokenize("Ocean.12.mkv")
	if result.Episode != nil {
		t.Fatalf("expected no episode for small trailing number, got %+v", result.Episode)
	}
}

func TestTokenizeLeadingTag(t *testing.T) {
	result := tokenizer.Tokenize("[GroupName] Attack.on.Titan.S04E28.mkv")
	if !reflect.DeepEqual(result.SeriesTokens, []string{"attack", "on", "titan"}) {
		t.Fatalf("series tokens = %v", result.SeriesTokens)
	}

	// A tag that is the whole name is not stripped.
	result = tokenizer.Tokenize("[2024].mkv")
	if result.NormalizedBase != "[2024]" {
		t.Fatalf("normalized base = %q", result.NormalizedBase)
	}
}

func TestTokenizeTrailingYearWithoutMarker(t *testing.T) {
	result := tokenizer.Tokenize("True.Detective.2014.1080p.BluRay.x264.mkv")
	if !reflect.DeepEqual(result.SeriesTokens, []string{"true", "detective"}) {
		t.Fatalf("series tokens = %v", result.SeriesTokens)
	}
	if result.Episode != nil {
		t.Fatalf("expected no episode, got %+v", result.Episode)
	}
}

func TestTokenizeStopWordsAndReleaseGroups(t *testing.T) {
	result := tokenizer.Tokenize("Dark.MULTI.WEBRip.x265.AAC.S01E01.mkv")
	if !reflect.DeepEqual(result.SeriesTokens, []string{"dark"}) {
		t.Fatalf("series tokens = %v, want [dark]", result.SeriesTokens)
	}
	if result.Quality.Source != "webrip" || result.Quality.Codec != "x265" {
		t.Fatalf("quality = %+v", result.Quality)
	}
}

func TestTokenizeHyphenatedStopToken(t *testing.T) {
	result := tokenizer.Tokenize("Show.1080p.-x264.S01E01.mkv")
	for _, token := range result.SeriesTokens {
		if token == "x264" || token == "1080p" {
			t.Fatalf("stop token leaked into series tokens: %v", result.SeriesTokens)
		}
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	const name = "Better.Call.Saul.S06E13.720p.WEB-DL.h264.mkv"
	first := tokenizer.Tokenize(name)
	second := tokenizer.Tokenize(name)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("tokenizer is not deterministic")
	}
}

func TestTokenizeMinTokenLength(t *testing.T) {
	result := tokenizer.TokenizeWith("M.A.S.H.S01E01.mkv", 2)
	if len(result.SeriesTokens) != 0 {
		t.Fatalf("expected single-letter tokens dropped, got %v", result.SeriesTokens)
	}
	result = tokenizer.TokenizeWith("M.A.S.H.S01E01.mkv", 1)
	if !reflect.DeepEqual(result.SeriesTokens, []string{"m", "a", "s", "h"}) {
		t.Fatalf("series tokens = %v", result.SeriesTokens)
	}
}
