package analyze

import (
	"fmt"

	"github.com/jaxxstorm/poolcheck/internal/model"
)

type OutcomeKind string

const (
	OutcomeHealthy             OutcomeKind = "HEALTHY"
	OutcomeHashMismatch        OutcomeKind = "HASH_MISMATCH"
	OutcomeMetadataUnavailable OutcomeKind = "METADATA_UNAVAILABLE"
	OutcomeRelaysDegraded      OutcomeKind = "RELAYS_DEGRADED"
	OutcomeRelaysUnreachable   OutcomeKind = "RELAYS_UNREACHABLE"
)

// Collector accumulates a run's events so the run can be diagnosed once the
// stream ends.
type Collector struct {
	Verification *model.VerificationResult
	Probes       []model.ProbeResult
}

func (c *Collector) Add(event model.Event) {
	switch event.Kind {
	case model.EventVerification:
		c.Verification = event.Verification
	case model.EventProbe:
		if event.Probe != nil {
			c.Probes = append(c.Probes, *event.Probe)
		}
	}
}

// Diagnose classifies a finished run. Metadata problems take precedence over
// relay problems.
func (c *Collector) Diagnose() model.Diagnosis {
	d := model.Diagnosis{}
	lossy := 0
	for _, p := range c.Probes {
		if p.Reachable {
			d.Reachable++
			if p.PacketLoss > 0 {
				lossy++
			}
		} else {
			d.Unreachable++
		}
	}
	total := len(c.Probes)

	switch {
	case c.Verification == nil:
		d.Classification = string(OutcomeMetadataUnavailable)
		d.Summary = "metadata was not verified"
	case c.Verification.Error != "":
		// Covers both a failed fetch and a registered hash that is not hex.
		d.Classification = string(OutcomeMetadataUnavailable)
		d.Summary = "metadata could not be verified: " + c.Verification.Error
		d.Hints = append(d.Hints, "check that the metadata URL returns 2xx and the registered hash is a hex BLAKE2b-256 digest")
	case !c.Verification.Match:
		d.Classification = string(OutcomeHashMismatch)
		d.Summary = "metadata hash does not match the registered hash"
		d.Hints = append(d.Hints, "re-register the pool with the hash of the currently served metadata")
	case total > 0 && d.Reachable == 0:
		d.Classification = string(OutcomeRelaysUnreachable)
		d.Summary = fmt.Sprintf("none of %d relays answered", total)
	case d.Unreachable > 0 || lossy > 0:
		d.Classification = string(OutcomeRelaysDegraded)
		d.Summary = fmt.Sprintf("%d of %d relays reachable, %d with packet loss", d.Reachable, total, lossy)
	default:
		d.Classification = string(OutcomeHealthy)
		d.Summary = fmt.Sprintf("metadata verified, %d of %d relays reachable", d.Reachable, total)
	}

	if d.Classification != string(OutcomeHealthy) && d.Unreachable > 0 {
		d.Hints = append(d.Hints, "verify relay firewall rules and published addresses")
	}
	if total == 0 {
		d.Hints = append(d.Hints, "pool registers no relay with a usable address")
	}
	return d
}
