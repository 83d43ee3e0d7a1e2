package extfloat

import (
	"math"
	"math/big"
	"testing"
)

func parseBig(t *testing.T, s string) *big.Float {
	t.Helper()
	f, _, err := big.ParseFloat(s, 10, 600, big.ToNearestEven)
	if err != nil {
		t.Fatalf("reference parse %q: %v", s, err)
	}
	return f
}

func TestParse(t *testing.T) {
	tests := []string{
		"0",
		"1",
		"-1",
		"0.5",
		"-0.7436438870371587",
		"0.13182590420531253",
		"3.1415926535897932384626433832795028841971693993751",
		"-1.768610493014677972446290331379092976039464308446e-2",
		"1e10",
		"1.5e-30",
		"-2.000000000000000000000000000001e-5",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			got, err := Parse[Quad](s)
			if err != nil {
				t.Fatalf("Parse(%q): %v", s, err)
			}
			checkNormalized(t, got)
			want := parseBig(t, s)
			if want.Sign() == 0 {
				if !got.IsZero() {
					t.Fatalf("Parse(%q) = %v, want zero", s, got.Limbs())
				}
				return
			}
			if e := relErr(bigOfValue(got), want); e > math.Ldexp(1, -(4*53-12)) {
				t.Fatalf("Parse(%q): rel err %g", s, e)
			}
		})
	}
}

func TestParseOctDeep(t *testing.T) {
	// A center coordinate with ~100 significant digits must survive to the
	// oct tier's budget.
	s := "-1.7685104553038923519293972695917581119811794170462013084479890963457269" +
		"53013634314357760201677e-1"
	got, err := Parse[Oct](s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := parseBig(t, s)
	if e := relErr(bigOfValue(got), want); e > math.Ldexp(1, -(8*53-16)) {
		t.Fatalf("oct parse: rel err %g", e)
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{"", " ", " 0.25 ", "abc", "1.2.3", "1e", "--1", "1x5", "e5", "."}
	for _, s := range bad {
		if _, err := Parse[Double](s); err == nil {
			t.Errorf("Parse(%q): expected error", s)
		}
	}
}

func TestParseComplex(t *testing.T) {
	z, err := ParseComplex[Double]("-0.75", "0.1")
	if err != nil {
		t.Fatalf("ParseComplex: %v", err)
	}
	if got := z.Complex128(); got != complex(-0.75, 0.1) {
		t.Fatalf("ParseComplex = %v", got)
	}
	if _, err := ParseComplex[Double]("nope", "0"); err == nil {
		t.Fatal("expected error for bad real part")
	}
}

func TestString(t *testing.T) {
	v, err := Parse[Double]("0.125")
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "0.125" {
		t.Fatalf("String() = %q, want %q", got, "0.125")
	}
}
