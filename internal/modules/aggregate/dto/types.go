package dto

type PluginInfo struct {
	Name         string
	Version      string
	Enabled      bool
	Binary       string
	Capabilities []string
}

type DoctorResult struct {
	Name            string
	ChecksumValid   bool
	BinaryReachable bool
	LifecycleOK     bool
	Statistics      []string
	Error           string
}

type RowInput struct {
	MarkerID int64
	Time     float64
	Label    string
	Epoch    string
	IBI      float64
}

type AggregateInput struct {
	Plugin     string
	Rows       []RowInput
	Statistics []string
}

type AggregateOutput struct {
	Plugin string
	Epochs map[string]map[string]float64
}
