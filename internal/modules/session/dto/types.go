package dto

import "time"

type OpenInput struct {
	Path string
	// Reset ignores markers saved by an earlier session.
	Reset bool
}

type SessionOutput struct {
	SessionID    string
	DatasetKey   string
	DatasetName  string
	Start        float64
	End          float64
	Rate         float64
	HasSecondary bool
	Markers      int
	Restored     bool
	Epochs       []EpochOutput
}

type CommandInput struct {
	Kind          string
	Mode          string
	Factor        float64
	Label         string
	Epoch         string
	Active        bool
	Start         float64
	End           float64
	X             float64
	UnitsPerPixel float64
}

type PointerInput struct {
	Phase         string
	Target        string
	X             float64
	UnitsPerPixel float64
	Outside       bool
}

type ChangeOutput struct {
	Kind     string
	MarkerID int64
	OldTime  float64
	NewTime  float64
	Detail   string
}

// ChangeSet lists what an input did. Note explains an input that changed nothing.
type ChangeSet struct {
	Changes []ChangeOutput
	Note    string
}

type HandleOutput struct {
	ID       int64
	Time     float64
	Label    string
	Dragging bool
}

type ShadingOutput struct {
	Active bool
	Mode   string
	Lo     float64
	Hi     float64
}

type SnapshotOutput struct {
	SessionID   string
	DatasetName string
	Mode        string
	WindowStart float64
	WindowEnd   float64
	BoundsStart float64
	BoundsEnd   float64
	Handles     []HandleOutput
	Shading     ShadingOutput
	Overview    string
	Markers     int
	Dirty       bool
}

type TraceInput struct {
	Secondary bool
	From      float64
	To        float64
	Columns   int
}

type BucketOutput struct {
	Min   float64
	Max   float64
	Empty bool
}

type TraceOutput struct {
	Available bool
	Min       float64
	Max       float64
	Buckets   []BucketOutput
	// Epochs holds the first active epoch covering each column, or "".
	Epochs []string
}

type MarkerQuery struct {
	From *float64
	To   *float64
}

type MarkerOutput struct {
	ID     int64
	Time   float64
	Label  string
	Epochs []string
}

type EpochOutput struct {
	Name   string
	Start  float64
	End    float64
	Active bool
}

type SelectionOutput struct {
	Name   string
	Active bool
}

type RowOutput struct {
	MarkerID int64
	Time     float64
	Label    string
	Epoch    string
	IBI      float64
}

type SpanOutput struct {
	Name  string
	Start float64
	End   float64
	Count int
}

type HistoryOutput struct {
	Action string
	At     time.Time
	Params map[string]any
}

type SaveOutput struct {
	DatasetKey string
	Markers    int
	SavedAt    time.Time
}

type StatsInput struct {
	Plugin string
}

type EpochStatsOutput struct {
	Epoch  string
	Values map[string]float64
}

type StatsOutput struct {
	Plugin string
	Epochs []EpochStatsOutput
}

type SummaryInput struct {
	// Plugin adds aggregator statistics when set.
	Plugin string
}

type SummaryOutput struct {
	Path  string
	Rows  int
	Spans int
}
