package textsearch

import (
	"math"
	"testing"
)

var brakeCorpus = []string{
	"BRAKES FAILED COMPLETELY WHILE DRIVING ON THE HIGHWAY",
	"ENGINE STALLED AT A STOP LIGHT AND WOULD NOT RESTART",
	"THE BRAKE PEDAL WENT TO THE FLOOR WITH NO WARNING",
	"AIRBAG WARNING LIGHT STAYS ON CONSTANTLY",
	"GRINDING NOISE FROM THE BRAKES WHEN STOPPING",
}

func TestSearchRanksRelevantFirst(t *testing.T) {
	ix := Build(brakeCorpus)
	got := ix.Search("brakes failed", 5)
	if len(got) != 5 {
		t.Fatalf("expected 5 matches, got %d", len(got))
	}
	if got[0].Position != 0 {
		t.Fatalf("best match should be doc 0, got %d", got[0].Position)
	}
	if got[0].Score <= got[len(got)-1].Score {
		t.Fatal("scores should descend")
	}
	// The engine complaint shares no query terms.
	for _, m := range got {
		if m.Position == 1 && m.Score != 0 {
			t.Fatalf("unrelated doc scored %f", m.Score)
		}
	}
}

func TestSearchDuplicateScoresOne(t *testing.T) {
	ix := Build([]string{
		"fuel pump failure caused engine stall",
		"completely different complaint about airbags",
	})
	got := ix.Search("fuel pump failure caused engine stall", 1)
	if len(got) != 1 || got[0].Position != 0 {
		t.Fatalf("unexpected matches: %v", got)
	}
	if math.Abs(got[0].Score-1.0) > 1e-9 {
		t.Fatalf("identical text should score 1.0, got %f", got[0].Score)
	}
}

func TestSearchBlankQuery(t *testing.T) {
	ix := Build(brakeCorpus)
	if got := ix.Search("", 5); got != nil {
		t.Fatalf("blank query should return nil, got %v", got)
	}
	if got := ix.Search("   ", 5); got != nil {
		t.Fatalf("whitespace query should return nil, got %v", got)
	}
}

func TestSearchStopWordOnlyQuery(t *testing.T) {
	ix := Build(brakeCorpus)
	got := ix.Search("the and of", 3)
	for _, m := range got {
		if m.Score != 0 {
			t.Fatalf("stop-word query should score 0 everywhere, got %f", m.Score)
		}
	}
}

func TestSearchTopKClamped(t *testing.T) {
	ix := Build(brakeCorpus)
	if got := ix.Search("brakes", 100); len(got) != len(brakeCorpus) {
		t.Fatalf("topK should clamp to corpus size, got %d", len(got))
	}
	if got := ix.Search("brakes", 2); len(got) != 2 {
		t.Fatalf("topK = 2 should return 2, got %d", len(got))
	}
	if got := ix.Search("brakes", 0); got != nil {
		t.Fatalf("topK = 0 should return nil, got %v", got)
	}
}

func TestSearchTieBreaksByPosition(t *testing.T) {
	ix := Build([]string{
		"unique alpha text",
		"brake failure",
		"brake failure",
	})
	got := ix.Search("brake failure", 3)
	if got[0].Position != 1 || got[1].Position != 2 {
		t.Fatalf("equal scores should keep position order: %v", got)
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	ix := Build(nil)
	if ix.Len() != 0 {
		t.Fatalf("Len = %d", ix.Len())
	}
	if got := ix.Search("anything", 5); got != nil {
		t.Fatalf("empty corpus should return nil, got %v", got)
	}
}

func TestBuildEmptyDocumentsKeepPositions(t *testing.T) {
	ix := Build([]string{"", "brake noise", ""})
	got := ix.Search("brake", 3)
	if got[0].Position != 1 {
		t.Fatalf("match should map to original position: %v", got)
	}
	if ix.Text(1) != "brake noise" {
		t.Fatalf("Text(1) = %q", ix.Text(1))
	}
}

func TestTinyCorpusStaysSearchable(t *testing.T) {
	// With n=1 every term exceeds the document-frequency cap; the index
	// must fail open rather than go empty.
	ix := Build([]string{"engine stall on highway"})
	got := ix.Search("engine stall", 1)
	if len(got) != 1 || got[0].Score <= 0 {
		t.Fatalf("single-doc corpus should still match: %v", got)
	}
}

func TestTokenizeBigrams(t *testing.T) {
	terms := tokenize("The brake pedal failed")
	want := map[string]bool{
		"brake": true, "pedal": true, "failed": true,
		"brake pedal": true, "pedal failed": true,
	}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v", terms)
	}
	for _, term := range terms {
		if !want[term] {
			t.Fatalf("unexpected term %q in %v", term, terms)
		}
	}
}
