package telemetry

import (
	"sync"
)

// Report is a single report captured by MemoryAPI.
type Report struct {
	Id     string
	Params []any
}

// MemoryAPI keeps every report in memory, it is meant for asserting on reports in tests.
type MemoryAPI struct {
	mutex    sync.Mutex
	Broken   []Report
	Warnings []Report
	Counts   map[string]int64
}

func (m *MemoryAPI) ReportBroken(id string, params ...any) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Broken = append(m.Broken, Report{Id: id, Params: params})
}

func (m *MemoryAPI) ReportWarning(id string, params ...any) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Warnings = append(m.Warnings, Report{Id: id, Params: params})
}

func (m *MemoryAPI) ReportDebug(string, ...any) {}

func (m *MemoryAPI) ReportCount(id string, count int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Counts == nil {
		m.Counts = map[string]int64{}
	}
	m.Counts[id] = count
}

// BrokenIds returns the ids of every broken report in order.
func (m *MemoryAPI) BrokenIds() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	ids := make([]string, len(m.Broken))
	for i, r := range m.Broken {
		ids[i] = r.Id
	}
	return ids
}
