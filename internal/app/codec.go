package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// Sources named in ParseError.
const (
	sourceStorage = "storage"
	sourceImport  = "import"
)

// wireQuote keeps pointers so a missing field can be told apart from an empty one.
type wireQuote struct {
	Text     *string `json:"text"`
	Category *string `json:"category"`
}

// decodeQuotes parses a persisted snapshot. Values are kept verbatim so that
// whatever commit wrote reads back unchanged; every element must still pass
// Quote.Validate.
func decodeQuotes(source string, raw []byte) ([]domain.Quote, error) {
	return decode(source, raw, func(text, category string) domain.Quote {
		return domain.Quote{Text: text, Category: category}
	})
}

// decodeImport parses user-supplied JSON. Both fields are trimmed before
// validation, the same way Submit treats typed input.
func decodeImport(raw []byte) ([]domain.Quote, error) {
	return decode(sourceImport, raw, func(text, category string) domain.Quote {
		return domain.Quote{Text: strings.TrimSpace(text), Category: strings.TrimSpace(category)}
	})
}

// decode parses a JSON array of {text, category} objects. The whole batch is
// rejected on the first bad element.
func decode(source string, raw []byte, build func(text, category string) domain.Quote) ([]domain.Quote, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, domain.NewParseError(source, "top-level value must be a JSON array", err)
	}

	if items == nil {
		// JSON null decodes without error.
		return nil, domain.NewParseError(source, "top-level value must be a JSON array", nil)
	}

	quotes := make([]domain.Quote, 0, len(items))

	for i, item := range items {
		var w wireQuote
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, domain.NewParseError(source, fmt.Sprintf("element %d is not a quote object", i), err)
		}

		if w.Text == nil {
			return nil, domain.NewParseError(source, fmt.Sprintf("element %d: text is missing or empty", i), nil)
		}

		if w.Category == nil {
			return nil, domain.NewParseError(source, fmt.Sprintf("element %d: category is missing or empty", i), nil)
		}

		quote := build(*w.Text, *w.Category)
		if err := quote.Validate(); err != nil {
			field := "quote"

			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				field = verr.Field
			}

			return nil, domain.NewParseError(source, fmt.Sprintf("element %d: %s is missing or empty", i, field), nil)
		}

		quotes = append(quotes, quote)
	}

	return quotes, nil
}

// validateAll rejects a list holding any quote that decodeQuotes would refuse.
func validateAll(quotes []domain.Quote) error {
	for i, quote := range quotes {
		if err := quote.Validate(); err != nil {
			return fmt.Errorf("quote %d: %w", i, err)
		}
	}

	return nil
}

// encodeQuotes is the persisted form: a compact JSON array.
func encodeQuotes(quotes []domain.Quote) ([]byte, error) {
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	return json.Marshal(quotes)
}

// exportQuotes is the user-facing snapshot: a 2-space indented JSON array
// with <, > and & left as typed.
func exportQuotes(quotes []domain.Quote) []byte {
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	// Encoding plain string structs cannot fail.
	_ = enc.Encode(quotes)

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
