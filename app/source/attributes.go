package source

import (
	"strings"
	"time"
)

// Attribute keys embedded in the feed's description field, e.g.
// "ALERT LEVEL: Advice; LOCATION: Hume Hwy; FIRE: Yes; SIZE: 20 ha".
const (
	descAlertLevel        = "ALERT LEVEL"
	descLocation          = "LOCATION"
	descCouncilArea       = "COUNCIL AREA"
	descStatus            = "STATUS"
	descType              = "TYPE"
	descFire              = "FIRE"
	descSize              = "SIZE"
	descResponsibleAgency = "RESPONSIBLE AGENCY"
)

var pubDateLayouts = []string{
	"2/01/2006 3:04:05 PM",
	"2/01/2006 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// parseDescription splits a "KEY: value; KEY: value" description into a map
// keyed by the upper-cased attribute name. HTML line breaks are treated the
// same as semicolons; unknown keys are carried through untouched.
func parseDescription(desc string) map[string]string {
	attrs := make(map[string]string)

	desc = strings.ReplaceAll(desc, "<br />", ";")
	desc = strings.ReplaceAll(desc, "<br/>", ";")
	desc = strings.ReplaceAll(desc, "<br>", ";")

	for _, part := range strings.Split(desc, ";") {
		key, value, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		attrs[key] = value
	}

	return attrs
}

// applyDescription copies the parsed description attributes onto an entry.
// The alert level only wins when the feed did not carry a category of its own.
func applyDescription(e *Entry, attrs map[string]string) {
	if e.Category == "" {
		e.Category = attrs[descAlertLevel]
	}
	e.Location = attrs[descLocation]
	e.CouncilArea = attrs[descCouncilArea]
	e.Status = attrs[descStatus]
	e.Type = attrs[descType]
	e.Size = attrs[descSize]
	e.ResponsibleAgency = attrs[descResponsibleAgency]

	if fire, ok := attrs[descFire]; ok {
		flag := strings.EqualFold(fire, "yes") || strings.EqualFold(fire, "true")
		e.Fire = &flag
	}
}

func parsePubDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
