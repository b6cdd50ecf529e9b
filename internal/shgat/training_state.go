package shgat

// NextColdState advances Cold -> Batch once enough traces have
// accumulated (spec.md §4.7): minTrainingTraces is cfg.MinTrainingTraces.
func (m *Model) NextColdState(traceCount int) {
	if m.state == StateCold && traceCount >= m.cfg.MinTrainingTraces {
		m.state = StateBatch
	}
}

// EnterLive transitions Batch -> Live once the initial batch-training
// run has completed.
func (m *Model) EnterLive() {
	if m.state == StateBatch {
		m.state = StateLive
	}
}

// MarkSaved transitions to Saved from any state. Nothing in the engine
// calls it; hot-loading params through ImportParams leaves the state as
// it was.
func (m *Model) MarkSaved() {
	m.state = StateSaved
}
