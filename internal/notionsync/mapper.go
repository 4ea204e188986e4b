package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/budget-tracker/internal/budget"
)

// TransactionToNotionProperties converts a transaction to Notion page
// properties for the transactions database.
func TransactionToNotionProperties(tr *budget.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		"Transaction ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tr.ID,
					},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: tr.OrigAmount,
		},
		"Base Amount": notionapi.NumberProperty{
			Number: tr.Type.Sign() * tr.BaseAmount,
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tr.Type),
			},
		},
		"Completed": notionapi.CheckboxProperty{
			Checkbox: tr.Completed,
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(
						tr.Date.Year,
						tr.Date.Month,
						tr.Date.Day,
						0, 0, 0, 0, time.UTC,
					))
					return &d
				}(),
			},
		},
	}

	if tr.Currency.Code != "" {
		props["Currency"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tr.Currency.Code,
			},
		}
	}

	if tr.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tr.Category),
			},
		}
	}

	if tr.Description != "" {
		props["Description"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tr.Description,
					},
				},
			},
		}
	}

	return props
}
