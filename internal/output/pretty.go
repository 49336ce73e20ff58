package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jaxxstorm/poolcheck/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(26)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func row(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

// RenderPool renders the directory record shown before any verification or
// probe rows.
func RenderPool(record model.Record) string {
	lines := []string{titleStyle.Render("poolcheck"), ""}
	info := record.Info
	if meta := info.Metadata; meta != nil {
		lines = append(lines,
			row("Pool Name", valueStyle.Render(meta.Name)),
			row("Ticker", valueStyle.Render(meta.Ticker)),
			row("Homepage", valueStyle.Render(meta.Homepage)),
			row("Description", valueStyle.Render(meta.Description)),
		)
	}
	lines = append(lines,
		row("Pool ID", valueStyle.Render(record.ID)),
		row("Pool Status", valueStyle.Render(info.Status)),
		row("Margin", valueStyle.Render(Percent(info.Margin))),
		row("Fixed Cost", valueStyle.Render(Lovelace(info.FixedCost))),
		row("Pledge", valueStyle.Render(Lovelace(info.Pledge))),
		row("Live Stake", valueStyle.Render(Lovelace(info.LiveStake))),
		row("Active Stake", valueStyle.Render(Lovelace(info.ActiveStake))),
		row("Minted Blocks", valueStyle.Render(strconv.Itoa(info.BlockCount))),
		row("Delegators", valueStyle.Render(strconv.Itoa(info.LiveDelegators))),
		row("Saturation", valueStyle.Render(fmt.Sprintf("%.2f%%", info.LiveSaturation))),
	)
	return strings.Join(lines, "\n")
}

func RenderEvent(event model.Event) string {
	switch {
	case event.Verification != nil:
		return RenderVerification(*event.Verification)
	case event.Probe != nil:
		return RenderProbe(*event.Probe)
	default:
		return ""
	}
}

func RenderVerification(v model.VerificationResult) string {
	status := successStyle.Render("Valid")
	switch {
	case v.Error != "":
		status = failureStyle.Render("Unverified: " + v.Error)
	case !v.Match:
		status = failureStyle.Render("Invalid")
	}
	computed := v.ComputedHash
	if computed == "" {
		computed = "-"
	}
	lines := []string{
		"",
		row("Meta URL", valueStyle.Render(v.MetaURL)),
		row("Meta Hash", valueStyle.Render(v.ExpectedHash)),
		row("Calculated Hash", valueStyle.Render(computed)),
		row("Validity", status),
	}
	return strings.Join(lines, "\n")
}

func RenderProbe(p model.ProbeResult) string {
	alive := successStyle.Render("true")
	if !p.Reachable {
		alive = failureStyle.Render("false")
	}
	relay := fmt.Sprintf("%s:%d (%s)", p.Target.Host, p.Target.Port, p.Target.Kind)
	if p.Address != "" && p.Target.Kind == model.KindSRV {
		relay += " -> " + p.Address
	}

	lines := []string{
		"",
		row("Relay", valueStyle.Render(relay)),
		row("Alive", alive),
		row("Ping Times", valueStyle.Render(sampleList(p.Samples))),
		row("Minimum/Maximum/Average", valueStyle.Render(fmt.Sprintf("%s / %s / %s", millis(p.MinMs), millis(p.MaxMs), millis(p.AvgMs)))),
		row("Packet Loss", lossStyle(p.PacketLoss).Render(fmt.Sprintf("%.0f%%", p.PacketLoss))),
	}
	if p.Error != "" {
		lines = append(lines, row("Error", failureStyle.Render(p.Error)))
	}
	return strings.Join(lines, "\n")
}

func RenderDiagnosis(d model.Diagnosis) string {
	summary := fmt.Sprintf("%s %s", d.Classification, d.Summary)
	lines := []string{""}
	if d.Classification == "HEALTHY" {
		lines = append(lines, successStyle.Render(summary))
	} else {
		lines = append(lines, failureStyle.Render(summary))
	}
	if len(d.Hints) > 0 {
		lines = append(lines, "Hints:")
		for _, hint := range d.Hints {
			lines = append(lines, "- "+hint)
		}
	}
	return strings.Join(lines, "\n")
}

func lossStyle(loss float64) lipgloss.Style {
	switch {
	case loss == 0:
		return successStyle
	case loss >= 100:
		return failureStyle
	default:
		return warningStyle
	}
}

func sampleList(samples []float64) string {
	if len(samples) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(samples))
	for _, s := range samples {
		parts = append(parts, millis(s))
	}
	return strings.Join(parts, ", ")
}

func millis(v float64) string {
	if v < 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 3, 64) + "ms"
}

// Lovelace formats a lovelace amount as ADA with two decimals. Values that
// do not parse are returned unchanged.
func Lovelace(value string) string {
	if value == "" {
		return "-"
	}
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%.2f ADA", amount/1_000_000)
}

func Percent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}
