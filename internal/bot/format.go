package bot

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"selfcare/internal/model"
	"selfcare/internal/service"
)

const dateLayout = "2006-01-02"

func escape(s string) string {
	return html.EscapeString(s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// joinSentence joins names as "A", "A and B" or "A, B, and C".
func joinSentence(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

func displayNames(users []model.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.DisplayName())
	}
	return names
}

// viewersSentence renders the viewer line of a strategy detail view.
func viewersSentence(selection model.ViewerSelection, viewers []model.User) string {
	switch selection.(type) {
	case model.AllAllies:
		return "All your allies are viewers."
	case model.ExplicitViewers:
		switch len(viewers) {
		case 0:
			return "Only you can see this strategy."
		case 1:
			return viewers[0].DisplayName() + " is a viewer."
		default:
			return joinSentence(displayNames(viewers)) + " are viewers."
		}
	default:
		return ""
	}
}

// describeSelection is the short viewer summary shown while editing.
func describeSelection(selection model.ViewerSelection, allies []model.User) string {
	switch sel := selection.(type) {
	case model.AllAllies:
		return "all allies"
	case model.ExplicitViewers:
		chosen := make(map[uint]struct{}, len(sel.AllyIDs))
		for _, id := range sel.AllyIDs {
			chosen[id] = struct{}{}
		}
		var names []string
		for _, ally := range allies {
			if _, ok := chosen[ally.ID]; ok {
				names = append(names, ally.DisplayName())
			}
		}
		if len(names) == 0 {
			return "only you"
		}
		return strings.Join(names, ", ")
	default:
		return "only you"
	}
}

// categoriesLine renders "Categories: A, B" sorted by name.
func categoriesLine(categories []model.Category) string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return "Categories: " + strings.Join(names, ", ")
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatStrategy(strategy model.Strategy, viewers []model.User, owned bool, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧠 <b>%s</b> <i>#%d</i>\n", escape(strategy.Name), strategy.ID))
	b.WriteString(fmt.Sprintf("Created: %s\n", strategy.CreatedAt.In(loc).Format(dateLayout)))
	if len(strategy.Categories) > 0 {
		b.WriteString(escape(categoriesLine(strategy.Categories)) + "\n")
	}
	if strategy.Description != "" {
		b.WriteString("\n" + escape(strategy.Description) + "\n")
	}
	if owned {
		b.WriteString("\n👀 " + escape(viewersSentence(strategy.Viewers(), viewers)) + "\n")
	}
	if len(strategy.Comments) > 0 {
		b.WriteString("\n💬 <b>Comments</b>\n")
		for _, c := range strategy.Comments {
			b.WriteString(fmt.Sprintf("<b>%s</b>: %s\n", escape(c.User.DisplayName()), escape(c.Body)))
		}
	}
	if strategy.CommentsAllowed {
		b.WriteString(fmt.Sprintf("\n✍️ Leave a comment: /comment %d your text", strategy.ID))
	}
	return strings.TrimSpace(b.String())
}

func formatStrategyDraft(input service.StrategyInput, allies []model.User) string {
	var b strings.Builder
	b.WriteString("📋 <b>Review</b>\n\n")
	b.WriteString(fmt.Sprintf("<b>%s:</b> %s\n", fieldName, escape(input.Name)))
	b.WriteString(fmt.Sprintf("<b>%s:</b> %s\n", fieldCategories, escape(listOrNone(input.Categories))))
	b.WriteString(fmt.Sprintf("<b>%s:</b> %s\n", fieldViewers, escape(describeSelection(input.Viewers, allies))))
	b.WriteString(fmt.Sprintf("<b>%s:</b> %s\n", fieldComments, yesNo(input.CommentsAllowed)))
	description := input.Description
	if description == "" {
		description = "none"
	}
	b.WriteString(fmt.Sprintf("<b>%s:</b> %s\n", fieldDescription, escape(description)))
	b.WriteString("\nTap a field to change it, or Save.")
	return b.String()
}

func formatMedication(m model.Medication) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💊 <b>%s</b> <i>#%d</i>\n", escape(m.Name), m.ID))
	if dose := service.DoseLine(m); dose != "" {
		b.WriteString(escape(dose) + "\n")
	}
	if m.Total != "" {
		b.WriteString(fmt.Sprintf("Total: %s\n", escape(strings.TrimSpace(m.Total+" "+m.TotalUnit))))
	}
	if m.Refill != nil {
		b.WriteString(fmt.Sprintf("Refill: %s\n", m.Refill.Format(dateLayout)))
	}
	if m.Comments != "" {
		b.WriteString(escape(m.Comments) + "\n")
	}
	if reminders := service.ComposeReminders(service.FlagsOf(m), service.TelegramReminderMarkup); reminders != "" {
		b.WriteString(reminders)
	}
	return strings.TrimSpace(b.String())
}
