package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/accountauth"
)

func TestEveryCounterIsDefinedOnce(t *testing.T) {
	seenID := make(map[accountauth.MetricID]bool)
	seenName := make(map[string]bool)
	for _, def := range CounterDefs {
		if seenID[def.ID] || seenName[def.Name] {
			t.Fatalf("duplicate counter definition %q", def.Name)
		}
		seenID[def.ID] = true
		seenName[def.Name] = true
		if !strings.HasPrefix(def.Name, "accountauth_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q breaks naming convention", def.Name)
		}
	}
	if len(CounterDefs) != int(accountauth.MetricAuthenticateLatency) {
		t.Fatalf("expected %d counters, got %d", accountauth.MetricAuthenticateLatency, len(CounterDefs))
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatalf("bucket label tables out of sync")
	}
}
