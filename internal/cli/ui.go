package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/viastitch/pkg/pipeline"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// =============================================================================
// File Output
// =============================================================================

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints run statistics on a single line.
func printStats(candidates, created int, cached, dryRun bool) {
	parts := []string{fmt.Sprintf("%d candidates", candidates)}
	if !dryRun {
		parts = append(parts, fmt.Sprintf("%d created", created))
	} else {
		parts = append(parts, "dry run")
	}

	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}
	parts = append(parts, statusStyle.Render(status))

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Println(line)
}

// printResult prints the human summary of a run.
func printResult(res *pipeline.Result) {
	r := res.Stitch
	switch {
	case r.Outcome == stitch.OutcomeCommitFailed:
		printError("Commit failed for net %s: %v", StyleHighlight.Render(r.Net), r.CommitErr)
	case r.Outcome != stitch.OutcomeOK:
		printWarning("Nothing to stitch on net %s: %s", r.Net, outcomeText(r.Outcome))
	case res.DryRun:
		printSuccess("Planned %s vias on %s", StyleNumber.Render(strconv.Itoa(len(r.Candidates))), StyleHighlight.Render(r.Net))
	default:
		printSuccess("Placed %s vias on %s", StyleNumber.Render(strconv.Itoa(len(r.Created))), StyleHighlight.Render(r.Net))
	}
	printStats(len(r.Candidates), len(r.Created), res.CacheInfo.PlanHit, res.DryRun)

	if r.Outcome == stitch.OutcomeOK && r.Stats.Width > 0 {
		printDetail("Grid %dx%d px, %d grid points, erosion %d px", r.Stats.Width, r.Stats.Height, r.Stats.GridPoints, r.Stats.ErosionRadius)
	}
	if r.SelectionErr != nil {
		printWarning("Could not select new vias: %v", r.SelectionErr)
	}
	if r.RefillErr != nil {
		printWarning("Zone refill failed: %v", r.RefillErr)
	}
	for _, s := range r.Skipped {
		printDetail("skipped %s %s: %s", s.Item, s.Layer, s.Reason)
	}
	if res.RunID != "" {
		printDetail("Run %s (%s)", res.RunID, res.Stats.Total.Round(time.Millisecond))
	}
}

// outcomeText describes a non-ok outcome.
func outcomeText(o stitch.Outcome) string {
	switch o {
	case stitch.OutcomeNetNotFound:
		return "net not found"
	case stitch.OutcomeNoFilledZones:
		return "no filled zones"
	case stitch.OutcomeEmptyBounds:
		return "zones have no area"
	case stitch.OutcomeTooLarge:
		return "board too large for the resolution"
	case stitch.OutcomeCommitFailed:
		return "commit failed"
	}
	return string(o)
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}
