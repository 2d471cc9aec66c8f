package activity

import "strings"

// Flatten converts records into rows, one row per event. The base fields
// of a record are shared by all of its rows; a record without events
// produces no rows.
func Flatten(records []Record) []Row {
	var rows []Row
	for _, rec := range records {
		for _, ev := range rec.Events {
			rows = append(rows, Row{
				Timestamp:  rec.Time,
				ActorEmail: rec.ActorEmail,
				IPAddress:  rec.IPAddress,
				EventName:  ev.Name,
				EventType:  ev.Type,
				Parameters: ParameterString(ev.Parameters),
			})
		}
	}
	return rows
}

// ParameterString renders parameters as "name=value" entries joined by "; ".
// An empty scalar value falls back to the multi-value list joined by commas.
// Parameters without a name are dropped. Source order is preserved.
func ParameterString(params []Parameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Name == "" {
			continue
		}
		value := p.Value
		if value == "" {
			value = strings.Join(p.MultiValue, ",")
		}
		parts = append(parts, p.Name+"="+value)
	}
	return strings.Join(parts, "; ")
}
