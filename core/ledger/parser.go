package ledger

import (
	"fmt"
	"strings"
)

// Reason explains why a row did not become a valid entity.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonSectionHeader   Reason = "section_header"
	ReasonEmptyRow        Reason = "empty_row"
	ReasonMissingFields   Reason = "missing_fields"
	ReasonInvalidCategory Reason = "invalid_category"
)

// Verdict is the validation outcome for one row.
type Verdict struct {
	Valid  bool
	Reason Reason
	// Detail is a human-readable explanation for invalid rows.
	Detail string
}

// ParseRow parses and validates one ledger row.
// Section headers return a nil entity. Every other row returns the parsed
// entity, valid or not, so callers can log what was rejected.
func ParseRow(cells []string, origin Origin) (*Entity, Verdict) {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	entity := &Entity{
		Title:    cell(ColTitle),
		Category: NormalizeCategory(cell(ColCategory)),
		Show:     cell(ColShow),
		Date:     cell(ColDate),
		Location: cell(ColLocation),
		Flags:    cell(ColFlags),
		Link:     cell(ColLink),
		RemoteID: cell(ColRemoteID),
		Origin:   origin,
	}

	rest := entity.Category == "" && entity.Date == "" && entity.Link == ""
	if entity.Title != "" && rest {
		return nil, Verdict{Reason: ReasonSectionHeader}
	}
	if entity.Title == "" && rest {
		return entity, Verdict{Reason: ReasonEmptyRow, Detail: "empty row"}
	}

	var missing []string
	if entity.Title == "" {
		missing = append(missing, "Name")
	}
	if entity.Category == "" {
		missing = append(missing, "Type")
	}
	if entity.Date == "" {
		missing = append(missing, "Date")
	}
	if entity.Link == "" && entity.Category != CategoryPresentations {
		missing = append(missing, "Link")
	}
	if len(missing) > 0 {
		return entity, Verdict{
			Reason: ReasonMissingFields,
			Detail: "missing required fields: " + strings.Join(missing, ", "),
		}
	}

	if !entity.Category.IsValid() {
		return entity, Verdict{
			Reason: ReasonInvalidCategory,
			Detail: fmt.Sprintf("invalid type %q", cell(ColCategory)),
		}
	}

	return entity, Verdict{Valid: true}
}
