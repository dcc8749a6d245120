package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// Property names of the ledger database.
const (
	PropItem         = "Item"
	PropEntryID      = "Entry ID"
	PropDate         = "Date"
	PropAmount       = "Amount"
	PropSignedAmount = "Signed Amount"
	PropCategory     = "Category"
	PropFlow         = "Flow"
	PropDescription  = "Description"
)

// EntryToNotionProperties converts a ledger entry to page properties.
func EntryToNotionProperties(e *domain.LedgerEntry) notionapi.Properties {
	props := notionapi.Properties{
		PropItem: notionapi.TitleProperty{
			Title: []notionapi.RichText{textBlock(e.Item)},
		},
		PropEntryID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{textBlock(e.ID)},
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: notionDate(e.Date),
			},
		},
		PropAmount: notionapi.NumberProperty{
			Number: e.Amount.InexactFloat64(),
		},
		PropSignedAmount: notionapi.NumberProperty{
			Number: e.SignedAmount().InexactFloat64(),
		},
		PropFlow: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(e.Flow)},
		},
	}

	if e.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: e.Category},
		}
	}

	if e.Description != "" {
		props[PropDescription] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{textBlock(e.Description)},
		}
	}

	return props
}

func textBlock(content string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: content},
	}
}

func notionDate(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(d.In(time.UTC))
	return &nd
}

// extractEntryID returns the "Entry ID" of a page, or "" if it has none.
func extractEntryID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropEntryID].(*notionapi.RichTextProperty); ok {
		if len(prop.RichText) > 0 {
			return prop.RichText[0].PlainText
		}
	}
	return ""
}

// extractDate returns the start date of a page's "Date" property.
func extractDate(page notionapi.Page) (civil.Date, bool) {
	prop, ok := page.Properties[PropDate].(*notionapi.DateProperty)
	if !ok || prop.Date == nil || prop.Date.Start == nil {
		return civil.Date{}, false
	}
	return civil.DateOf(time.Time(*prop.Date.Start).UTC()), true
}

// pageMatchesEntry reports whether the page already mirrors e.
func pageMatchesEntry(page notionapi.Page, e *domain.LedgerEntry) bool {
	title, ok := page.Properties[PropItem].(*notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 || title.Title[0].PlainText != e.Item {
		return false
	}

	amount, ok := page.Properties[PropAmount].(*notionapi.NumberProperty)
	if !ok || amount.Number != e.Amount.InexactFloat64() {
		return false
	}

	flow, ok := page.Properties[PropFlow].(*notionapi.SelectProperty)
	if !ok || flow.Select.Name != string(e.Flow) {
		return false
	}

	if e.Category != "" {
		cat, ok := page.Properties[PropCategory].(*notionapi.SelectProperty)
		if !ok || cat.Select.Name != e.Category {
			return false
		}
	}

	d, ok := extractDate(page)
	return ok && d == e.Date
}
