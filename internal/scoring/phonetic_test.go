package scoring

import "testing"

func TestComprehension_ExactWords(t *testing.T) {
	m := NewMatcher()

	res := m.Comprehension("the gate gave him a map", []string{"map", "gate"})
	if !res.AllHeard() {
		t.Fatalf("expected all words heard, got %d of %d", res.HeardCount, len(res.Words))
	}
	for _, wr := range res.Words {
		if wr.Confidence != 1 {
			t.Errorf("word %q: confidence = %f, want 1 for exact token", wr.Word, wr.Confidence)
		}
	}
}

func TestComprehension_PhoneticMisrecognition(t *testing.T) {
	m := NewMatcher()

	// "gait" is a common recognizer output for a child saying "gate".
	res := m.Comprehension("he walked through the gait", []string{"gate"})
	if res.HeardCount != 1 {
		t.Fatalf("expected phonetic match for gate, heard %d words", res.HeardCount)
	}
	wr := res.Words[0]
	if wr.Token != "gait" {
		t.Errorf("matched token = %q, want gait", wr.Token)
	}
	if wr.Confidence < 0.70 || wr.Confidence >= 1 {
		t.Errorf("confidence = %f, want in [0.70, 1)", wr.Confidence)
	}
}

func TestComprehension_MissingWord(t *testing.T) {
	m := NewMatcher()

	res := m.Comprehension("asher slid aside", []string{"map", "gate"})
	if res.HeardCount != 0 {
		t.Fatalf("expected no words heard, got %d", res.HeardCount)
	}
	if res.AllHeard() {
		t.Error("AllHeard() = true for a transcript without the words")
	}
	for _, wr := range res.Words {
		if wr.Heard || wr.Token != "" || wr.Confidence != 0 {
			t.Errorf("word %q: unexpected match %+v", wr.Word, wr)
		}
	}
}

func TestComprehension_PunctuationAndCase(t *testing.T) {
	m := NewMatcher()

	res := m.Comprehension("‘Map, please!’ said Asher.", []string{"map"})
	if res.HeardCount != 1 {
		t.Fatalf("expected map heard through punctuation, got %d", res.HeardCount)
	}
	if res.Words[0].Token != "map" {
		t.Errorf("matched token = %q, want map", res.Words[0].Token)
	}
}

func TestComprehension_Empty(t *testing.T) {
	m := NewMatcher()

	if res := m.Comprehension("", []string{"map"}); res.HeardCount != 0 {
		t.Error("empty transcript should hear nothing")
	}
	if res := m.Comprehension("some words", nil); len(res.Words) != 0 || res.HeardCount != 0 {
		t.Error("empty expected list should yield empty result")
	}
	if !m.Comprehension("anything", nil).AllHeard() {
		t.Error("AllHeard() should be vacuously true with no expected words")
	}
}

func TestComprehension_ThresholdOptions(t *testing.T) {
	// With both thresholds at the maximum, only exact tokens pass.
	strict := NewMatcher(WithPhoneticThreshold(1), WithExactThreshold(1))

	if res := strict.Comprehension("gait", []string{"gate"}); res.HeardCount != 0 {
		t.Error("strict matcher should reject near-miss tokens")
	}
	if res := strict.Comprehension("gate", []string{"gate"}); res.HeardCount != 1 {
		t.Error("strict matcher should still accept exact tokens")
	}
}
