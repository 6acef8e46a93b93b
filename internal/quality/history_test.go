package quality

import "testing"

func TestAppendAIScore_CapsToMostRecent(t *testing.T) {
	var history []interface{}
	for i := 0; i < 5; i++ {
		history = AppendAIScore(history, AIScoreEntry{Score: float64(i), Provider: "p"}, 3)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	last := history[2].(map[string]interface{})
	if last["score"] != 4.0 {
		t.Fatalf("expected last entry score 4.0, got %v", last["score"])
	}
}
