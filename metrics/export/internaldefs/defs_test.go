package internaldefs

import (
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestDefinitionsAreUnique(t *testing.T) {
	names := map[string]bool{AuditDroppedName: true}
	ids := map[goSession.MetricID]bool{}

	for _, d := range CounterDefs {
		if names[d.Name] || ids[d.ID] {
			t.Fatalf("duplicate counter definition %q (%d)", d.Name, d.ID)
		}
		names[d.Name] = true
		ids[d.ID] = true
	}
	for _, d := range HistogramDefs {
		if names[d.Name] || ids[d.ID] {
			t.Fatalf("duplicate histogram definition %q (%d)", d.Name, d.ID)
		}
		names[d.Name] = true
		ids[d.ID] = true
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2, 0, 0, 0, 0, 3}))
	want := [8]uint64{1, 1, 3, 3, 3, 3, 3, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
}

func TestApproxSum(t *testing.T) {
	if got := ApproxSum([8]uint64{}); got != 0 {
		t.Fatalf("empty histogram sum = %v", got)
	}
	// One sample in the first bucket sits at its midpoint.
	if got := ApproxSum([8]uint64{1}); got != 0.0025 {
		t.Fatalf("ApproxSum = %v, want 0.0025", got)
	}
}
