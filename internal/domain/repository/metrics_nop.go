package repository

// NopMetrics discards every observation. Used when metrics are disabled and
// in tests.
type NopMetrics struct{}

func (NopMetrics) RecordBar(string, string)                       {}
func (NopMetrics) RecordCandidate(string, string, string)         {}
func (NopMetrics) RecordConfirmation(string, string, string)      {}
func (NopMetrics) RecordInvalidation(string, string)              {}
func (NopMetrics) RecordSignal(string, string)                    {}
func (NopMetrics) RecordTrade(string, string)                     {}
func (NopMetrics) RecordRiskRejection(string)                     {}
func (NopMetrics) RecordRiskState(float64, float64, float64, int) {}
func (NopMetrics) RecordLastPrice(string, float64)                {}
func (NopMetrics) RecordLatency(string, float64)                  {}
func (NopMetrics) RecordError(string)                             {}
