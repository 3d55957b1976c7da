package chunker

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 1},
		{"eligibility", 1},
		{"one two three", 3},
		{"a b c d e f g h i j k l m n o p q r s t u v w x y z a b c d", 39},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
