package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/melodex/internal/player"
	"github.com/desertthunder/melodex/internal/shared"
)

const barWidth = 30

// renderPlayerBar draws the now-playing panel from a controller snapshot.
func renderPlayerBar(st player.State, artist string, width int) string {
	if st.Phase == player.Idle && !st.HasTrack() {
		return styles.muted.Render("Nothing playing")
	}

	var icon string
	switch st.Phase {
	case player.Loading:
		icon = "…"
	case player.Playing:
		icon = "▶"
	default:
		icon = "⏸"
	}

	title := "Loading..."
	if st.Track != nil {
		title = styles.accent.Render(st.Track.Title)
		if artist != "" {
			title += styles.muted.Render(" - " + artist)
		}
	}

	heart := "♡"
	if st.Liked {
		heart = styles.err.Render("♥")
	}
	if st.LikePending {
		heart = styles.warn.Render("…")
	}

	line1 := lipgloss.JoinHorizontal(lipgloss.Left, icon, " ", title, "  ", heart)
	line2 := fmt.Sprintf("%s %s / %s   vol %d%%",
		progressBar(st.Progress, st.Duration, min(barWidth, max(width-30, 10))),
		shared.FormatDuration(int(st.Progress)),
		shared.FormatDuration(int(st.Duration)),
		int(st.Volume*100+0.5),
	)
	return lipgloss.JoinVertical(lipgloss.Left, line1, line2)
}

// progressBar renders position/duration as a fixed-width bar; an unknown duration renders empty.
func progressBar(pos, dur float64, width int) string {
	filled := 0
	if dur > 0 {
		filled = int(pos / dur * float64(width))
	}
	filled = min(max(filled, 0), width)
	return styles.accent.Render(strings.Repeat("━", filled)) + styles.muted.Render(strings.Repeat("─", width-filled))
}

// renderPicker lists the user's playlists with the current track's membership.
func renderPicker(st player.State, cursor int) string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Add to playlist"))
	b.WriteString("\n")

	if len(st.Playlists) == 0 {
		b.WriteString(styles.muted.Render("No playlists loaded"))
		return b.String()
	}

	for i, pl := range st.Playlists {
		pointer := "  "
		if i == cursor {
			pointer = styles.accent.Render("> ")
		}
		check := "[ ]"
		if pl.ContainsCurrent {
			check = styles.ok.Render("[x]")
		}
		name := pl.Name
		if pl.IsDefault {
			name = "♥ Liked songs"
		}
		line := fmt.Sprintf("%s%s %s %s", pointer, check, name, styles.muted.Render(fmt.Sprintf("(%d)", pl.TrackCount)))
		if pl.Pending {
			line += styles.warn.Render(" saving...")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
