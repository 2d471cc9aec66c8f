// Package activity defines the raw audit activity model returned by a log
// source and the flat row format written to archives.
package activity

// Record is one raw activity returned by the log source.
type Record struct {
	// Time is the activity timestamp in RFC 3339 form, as reported by the API.
	Time string

	// ActorEmail is the acting user's address. Empty when the API omits it.
	ActorEmail string

	// IPAddress is the originating network address. Empty when absent.
	IPAddress string

	// Events are the occurrences carried by this activity, in API order.
	Events []Event
}

// Event is a named occurrence within a Record.
type Event struct {
	Name       string
	Type       string
	Parameters []Parameter
}

// Parameter is a named event attribute holding either a scalar Value or
// a MultiValue list.
type Parameter struct {
	Name       string
	Value      string
	MultiValue []string
}

// Columns is the fixed archive header, in column order.
var Columns = []string{
	"timestamp",
	"actor_email",
	"ip_address",
	"event_name",
	"event_type",
	"parameters",
}

// Row is the flattened output unit: one event of one activity.
type Row struct {
	Timestamp  string `json:"timestamp"`
	ActorEmail string `json:"actor_email"`
	IPAddress  string `json:"ip_address"`
	EventName  string `json:"event_name"`
	EventType  string `json:"event_type"`
	Parameters string `json:"parameters"`
}

// Fields returns the row values in Columns order.
func (r Row) Fields() []string {
	return []string{r.Timestamp, r.ActorEmail, r.IPAddress, r.EventName, r.EventType, r.Parameters}
}

// RowFromFields builds a Row from values in Columns order.
// The caller must pass exactly len(Columns) values.
func RowFromFields(fields []string) Row {
	return Row{
		Timestamp:  fields[0],
		ActorEmail: fields[1],
		IPAddress:  fields[2],
		EventName:  fields[3],
		EventType:  fields[4],
		Parameters: fields[5],
	}
}
