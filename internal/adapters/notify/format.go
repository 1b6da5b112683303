package notify

import (
	"fmt"
	"strings"

	"github.com/fragdrop/fragwatch/internal/domain/model"
)

const summaryKeywordLimit = 3

// FromMatch builds the drop notification for a positive classification.
func FromMatch(match model.Match) Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Author: %s\n", orUnknown(match.Post.Author))
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", match.Decision.Confidence*100)

	if primary := match.Decision.Explanation.PrimaryMatches; len(primary) > 0 {
		if len(primary) > summaryKeywordLimit {
			primary = primary[:summaryKeywordLimit]
		}
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(primary, ", "))
	}
	if match.Decision.Explanation.TrustedAuthor {
		b.WriteString("Posted by a trusted author\n")
	}

	n := NewNotification(KindDrop, match.Post.Title, strings.TrimRight(b.String(), "\n"), match.Post.URL)
	n.Confidence = match.Decision.Confidence
	return n
}

// FromChange builds the notification for one catalog change event.
func FromChange(e model.ChangeEvent) Notification {
	var kind Kind
	var title, body string

	switch e.Kind {
	case model.ChangeRestocked:
		kind = KindRestock
		title = fmt.Sprintf("Back in stock: %s", e.Product.Name)
		body = fmt.Sprintf("Price: %s", e.Product.Price)
	case model.ChangeNewProduct:
		kind = KindNewProduct
		title = fmt.Sprintf("New product: %s", e.Product.Name)
		body = fmt.Sprintf("Price: %s", e.Product.Price)
	case model.ChangeOutOfStock:
		kind = KindOutOfStock
		title = fmt.Sprintf("Out of stock: %s", e.Product.Name)
	case model.ChangePriceChanged:
		kind = KindPriceChange
		title = fmt.Sprintf("Price change: %s", e.Product.Name)
		body = fmt.Sprintf("%s -> %s", e.OldPrice, e.NewPrice)
	default:
		kind = Kind(e.Kind)
		title = e.Product.Name
	}

	if e.Watchlisted {
		body = strings.TrimRight("Watchlisted product\n"+body, "\n")
	}

	n := NewNotification(kind, title, body, e.Product.URL)
	n.Watchlisted = e.Watchlisted
	return n
}

// TestNotification is sent on startup when the operator asks for a
// delivery check.
func TestNotification() Notification {
	return NewNotification(KindTest,
		"fragwatch test notification",
		"Notification channels are configured correctly.",
		"")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
