package model

// Stats is the singleton aggregate of booking counters.
// Field order is the wire order of the JSON snapshot.
type Stats struct {
	Processed int64 `json:"processed"`
	Success   int64 `json:"success"`
	Requests  int64 `json:"requests"`
}

type StatsField string

const (
	FieldRequests  StatsField = "requests"
	FieldProcessed StatsField = "processed"
	FieldSuccess   StatsField = "success"
)

// StatsFields lists every counter in a stable order.
var StatsFields = []StatsField{FieldProcessed, FieldSuccess, FieldRequests}

// Deltas are additive increments per counter. Zero entries are not written.
type Deltas map[StatsField]int64

// NonZero returns the fields with a non-zero delta in StatsFields order.
func (d Deltas) NonZero() []StatsField {
	fields := make([]StatsField, 0, len(d))

	for _, f := range StatsFields {
		if d[f] != 0 {
			fields = append(fields, f)
		}
	}

	return fields
}

func (d Deltas) IsZero() bool {
	return len(d.NonZero()) == 0
}

// Set stores value into the counter named by f. Unknown fields are ignored.
func (s *Stats) Set(f StatsField, value int64) {
	switch f {
	case FieldRequests:
		s.Requests = value
	case FieldProcessed:
		s.Processed = value
	case FieldSuccess:
		s.Success = value
	}
}

// Readback is the outcome of a best-effort stats read. Stats is nil when Err is set.
type Readback struct {
	Stats *Stats
	Err   error
}

func (r Readback) OK() bool {
	return r.Err == nil && r.Stats != nil
}
