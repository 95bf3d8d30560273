package percent

import "testing"

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestNormalize_SumsToHundred(t *testing.T) {
	cases := [][]float64{
		{1, 1, 1},
		{1, 2, 3, 4},
		{5},
		{0.1, 0.2, 0.7},
		{7, 0, 3},
		{1, 1, 1, 1, 1, 1, 1},
		{999999, 1},
	}

	for _, in := range cases {
		out := Normalize(in)
		if len(out) != len(in) {
			t.Fatalf("Normalize(%v) length = %d, want %d", in, len(out), len(in))
		}
		if got := sum(out); got != 100 {
			t.Errorf("Normalize(%v) sums to %d, want 100", in, got)
		}
		for i, p := range out {
			if p < 0 || p > 100 {
				t.Errorf("Normalize(%v)[%d] = %d, out of range", in, i, p)
			}
		}
	}
}

func TestNormalize_AllZero(t *testing.T) {
	out := Normalize([]float64{0, 0, 0})
	for i, p := range out {
		if p != 0 {
			t.Errorf("element %d = %d, want 0", i, p)
		}
	}
	if len(out) != 3 {
		t.Fatalf("length = %d, want 3", len(out))
	}
}

func TestNormalize_Empty(t *testing.T) {
	if out := Normalize(nil); len(out) != 0 {
		t.Fatalf("Normalize(nil) = %v, want empty", out)
	}
}

func TestNormalize_SingleValue(t *testing.T) {
	out := Normalize([]float64{42})
	if out[0] != 100 {
		t.Fatalf("single value got %d, want 100", out[0])
	}
}

func TestNormalize_EqualThirds(t *testing.T) {
	// Three equal buckets floor to 33+33+33; the leftover point goes to the
	// first bucket on the tie.
	out := Normalize([]float64{1, 1, 1})
	want := []int{34, 33, 33}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestNormalize_OrderPreserved(t *testing.T) {
	out := Normalize([]float64{10, 30, 60})
	want := []int{10, 30, 60}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestNormalize_NegativeTreatedAsZero(t *testing.T) {
	out := Normalize([]float64{-5, 10})
	if out[0] != 0 || out[1] != 100 {
		t.Fatalf("got %v, want [0 100]", out)
	}
}

func TestNormalizeCounts(t *testing.T) {
	out := NormalizeCounts([]int{1, 1, 1})
	if got := sum(out); got != 100 {
		t.Fatalf("sums to %d, want 100", got)
	}
	if out[0] != 34 {
		t.Fatalf("got %v, want first element 34", out)
	}
}
