package lsm

import "testing"

func TestAliasTableEmptyWeights(t *testing.T) {
	at := NewAliasTable(nil)
	if at.Len() != 0 {
		t.Errorf("Len() = %d, want 0", at.Len())
	}
	if at.Draw(NewMT19937(1)) != -1 {
		t.Error("expected Draw on empty table to return -1")
	}
}

func TestAliasTableAllZeroWeightsDegeneratesToUniform(t *testing.T) {
	at := NewAliasTable([]float64{0, 0, 0})
	rng := NewMT19937(5)
	counts := make([]int, 3)
	for i := 0; i < 3000; i++ {
		counts[at.Draw(rng)]++
	}
	for i, c := range counts {
		if c == 0 {
			t.Errorf("index %d never drawn from degenerate all-zero-weight table", i)
		}
	}
}

func TestAliasTableDrawWithinBounds(t *testing.T) {
	weights := []float64{1, 2, 3, 4, 5}
	at := NewAliasTable(weights)
	rng := NewMT19937(17)
	for i := 0; i < 5000; i++ {
		d := at.Draw(rng)
		if d < 0 || d >= len(weights) {
			t.Fatalf("Draw() = %d, out of [0,%d)", d, len(weights))
		}
	}
}

func TestAliasTableMatchesWeightProportions(t *testing.T) {
	weights := []float64{1, 9} // index 1 should dominate draws
	at := NewAliasTable(weights)
	rng := NewMT19937(3)

	counts := make([]int, 2)
	trials := 20000
	for i := 0; i < trials; i++ {
		counts[at.Draw(rng)]++
	}

	ratio := float64(counts[1]) / float64(trials)
	if ratio < 0.8 || ratio > 0.95 {
		t.Errorf("index 1 drawn %v of the time, want close to 0.9", ratio)
	}
}
