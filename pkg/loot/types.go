package loot

// Record is one target-alliance entry extracted from a page.
type Record struct {
	ID        int64
	Name      string
	LootValue int64
}

// Row is a single line of the exported report.
type Row struct {
	ID   int64
	Name string
}

// StopReason tells why a scan ended.
type StopReason string

const (
	StopBelowThreshold StopReason = "below_threshold"
	StopNoData         StopReason = "no_data"
	StopFetchFailed    StopReason = "fetch_failed"
	StopMaxPages       StopReason = "max_pages"
	StopCanceled       StopReason = "canceled"
)

// Result is the outcome of a single scan.
type Result struct {
	Rows         []Row
	PagesFetched int
	StopReason   StopReason
}

// Logger abstracts logging so callers can use logrus or anything else that
// satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }
