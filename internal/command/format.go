package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/collabiora/companion/internal/notify"
	"github.com/collabiora/companion/internal/types"
)

var (
	kindStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	badgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// newNotifier chooses where action results surface: desktop toasts
// normally, plain stderr lines in JSON mode.
func newNotifier(cmd *cobra.Command, ctx *Context) notify.Notifier {
	if ctx.JSONMode {
		return &notify.Console{Out: cmd.ErrOrStderr()}
	}
	return notify.NewDesktop(cmd.ErrOrStderr(), ctx.Logger)
}

func renderFavorites(entries []types.FavoriteEntry) string {
	if len(entries) == 0 {
		return dimStyle.Render("No favorites yet") + "\n"
	}
	var b strings.Builder
	for _, entry := range entries {
		label := entry.Payload.Title
		if label == "" {
			label = entry.Payload.Name
		}
		if label == "" {
			label = entry.Identity
		}
		fmt.Fprintf(&b, "%s  %s",
			kindStyle.Render(fmt.Sprintf("%-12s", entry.Kind)),
			labelStyle.Render(label))
		if detail := entryDetail(entry); detail != "" {
			fmt.Fprintf(&b, "  %s", dimStyle.Render(detail))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func entryDetail(entry types.FavoriteEntry) string {
	switch entry.Kind {
	case types.KindExpert, types.KindCollaborator:
		return entry.Payload.Affiliation
	case types.KindPublication:
		if entry.Payload.Journal != "" && entry.Payload.Year > 0 {
			return fmt.Sprintf("%s %d", entry.Payload.Journal, entry.Payload.Year)
		}
		return entry.Payload.Journal
	case types.KindTrial:
		return entry.Payload.Status
	}
	return ""
}

func renderRecommendations(recs []types.Recommendation) string {
	if len(recs) == 0 {
		return dimStyle.Render("No recommendations right now") + "\n"
	}
	var b strings.Builder
	for _, rec := range recs {
		label := rec.Item.Title
		if label == "" {
			label = rec.Item.Name
		}
		fmt.Fprintf(&b, "%s  %s  %s\n",
			kindStyle.Render(fmt.Sprintf("%-12s", rec.Kind)),
			labelStyle.Render(label),
			badgeStyle.Render(fmt.Sprintf("%.0f%% match", rec.Score)))
	}
	return b.String()
}
