package analyze

import (
	"strings"
	"testing"

	"github.com/jaxxstorm/poolcheck/internal/model"
)

func run(v *model.VerificationResult, probes ...model.ProbeResult) model.Diagnosis {
	c := &Collector{}
	if v != nil {
		c.Add(model.Event{Kind: model.EventVerification, Verification: v})
	}
	for i := range probes {
		c.Add(model.Event{Kind: model.EventProbe, Probe: &probes[i]})
	}
	return c.Diagnose()
}

func TestDiagnoseHealthy(t *testing.T) {
	d := run(&model.VerificationResult{Match: true}, model.ProbeResult{Reachable: true})
	if d.Classification != "HEALTHY" || d.Reachable != 1 {
		t.Fatalf("unexpected diagnosis: %#v", d)
	}
}

func TestDiagnoseMismatchWinsOverRelays(t *testing.T) {
	d := run(&model.VerificationResult{Match: false, ComputedHash: "def456"}, model.ProbeResult{Reachable: false, PacketLoss: 100})
	if d.Classification != "HASH_MISMATCH" || d.Unreachable != 1 {
		t.Fatalf("unexpected diagnosis: %#v", d)
	}
	if len(d.Hints) != 2 {
		t.Fatalf("expected two hints, got %#v", d.Hints)
	}
}

func TestDiagnoseMetadataUnavailable(t *testing.T) {
	d := run(&model.VerificationResult{Error: "metadata fetch failed: 404 Not Found"})
	if d.Classification != "METADATA_UNAVAILABLE" {
		t.Fatalf("unexpected diagnosis: %#v", d)
	}
	if d := run(nil); d.Classification != "METADATA_UNAVAILABLE" {
		t.Fatalf("expected missing verification to be unavailable, got %s", d.Classification)
	}
}

func TestDiagnoseRelays(t *testing.T) {
	ok := &model.VerificationResult{Match: true}
	if d := run(ok, model.ProbeResult{PacketLoss: 100}, model.ProbeResult{PacketLoss: 100}); d.Classification != "RELAYS_UNREACHABLE" {
		t.Fatalf("expected RELAYS_UNREACHABLE, got %s", d.Classification)
	}
	if d := run(ok, model.ProbeResult{Reachable: true}, model.ProbeResult{PacketLoss: 100}); d.Classification != "RELAYS_DEGRADED" {
		t.Fatalf("expected RELAYS_DEGRADED, got %s", d.Classification)
	}
	if d := run(ok, model.ProbeResult{Reachable: true, PacketLoss: 33.3}); d.Classification != "RELAYS_DEGRADED" {
		t.Fatalf("expected lossy relay to degrade, got %s", d.Classification)
	}
}

func TestDiagnoseNoRelays(t *testing.T) {
	d := run(&model.VerificationResult{Match: true})
	if d.Classification != "HEALTHY" || len(d.Hints) != 1 {
		t.Fatalf("unexpected diagnosis: %#v", d)
	}
}

func TestDiagnoseInvalidRegisteredHash(t *testing.T) {
	d := run(&model.VerificationResult{Error: `expected hash is not a non-empty hex string: "zz"`})
	if d.Classification != "METADATA_UNAVAILABLE" {
		t.Fatalf("unexpected classification: %s", d.Classification)
	}
	if strings.Contains(d.Summary, "fetch") || !strings.Contains(d.Summary, `"zz"`) {
		t.Fatalf("summary should carry the verification error, got %q", d.Summary)
	}
}
