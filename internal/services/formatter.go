package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/ad/persona-onboarding/internal/models"
)

const progressBarLength = 20

// FormatDuration formats a duration as "1d 2h 3m", dropping seconds once
// the duration reaches an hour.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 && days == 0 && hours == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}

func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)
	if diff < time.Minute {
		return "just now"
	}
	return FormatDuration(diff.Truncate(time.Minute)) + " ago"
}

func FormatDateTime(t time.Time) string {
	return t.Format("2 Jan 2006, 15:04")
}

// FormatProgressBar renders done out of total as a fixed-width bar.
func FormatProgressBar(done, total int) string {
	if total <= 0 {
		return ""
	}
	filled := done * progressBarLength / total
	filled = max(0, min(filled, progressBarLength))
	return strings.Repeat("▰", filled) + strings.Repeat("▱", progressBarLength-filled)
}

// FormatOverview renders a persona's onboarding state for admins and the
// status command.
func FormatOverview(o *PersonaOverview) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "👤 %s\n", o.Persona.Label())
	fmt.Fprintf(&sb, "Created: %s (%s)\n\n", FormatDateTime(o.Persona.CreatedAt), FormatTimeAgo(o.Persona.CreatedAt))

	fmt.Fprintf(&sb, "%s %d/%d\n", FormatProgressBar(o.LastCompletedStep, o.TotalSteps), o.LastCompletedStep, o.TotalSteps)
	if o.IsCompleted() {
		sb.WriteString("Status: ✅ onboarding complete\n")
	} else {
		fmt.Fprintf(&sb, "Status: resumes at step %d\n", o.ResumeStep)
	}
	fmt.Fprintf(&sb, "Submitted: %d, skipped: %d\n", o.SubmittedSteps, o.SkippedSteps)

	if len(o.Progress) > 0 {
		sb.WriteString("\nSteps:\n")
		for _, p := range o.Progress {
			mark := "✅"
			if p.Status == models.StatusSkipped {
				mark = "⏭"
			}
			fmt.Fprintf(&sb, "%s %d\n", mark, p.StepIndex)
		}
	}

	if o.Upload != nil {
		fmt.Fprintf(&sb, "\nResume: %s (%d bytes, sha256 %.12s)\n", o.Upload.FileName, o.Upload.Size, o.Upload.SHA256)
	}

	return sb.String()
}
