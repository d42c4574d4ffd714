package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coloradocovid/covid-data-etl/internal/domain"
	"github.com/coloradocovid/covid-data-etl/internal/observability"
)

// --- mocks ---

type mockFetcher struct {
	payloads map[string][]byte // keyed by URL
	errs     map[string]error
	fetched  []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	m.fetched = append(m.fetched, url)
	if err := m.errs[url]; err != nil {
		return nil, err
	}
	payload, ok := m.payloads[url]
	if !ok {
		return nil, fmt.Errorf("no payload for %s", url)
	}
	return payload, nil
}

type mockBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (m *mockBlobStore) Put(_ context.Context, key string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

type invoke struct {
	function string
	newData  bool
}

type mockDatabase struct {
	latest      map[string]time.Time              // absent table means empty
	caseRows    map[string]domain.DailyCaseRecord // keyed by YYYY-MM-DD
	vaccineLast *domain.DailyVaccineRecord
	latestErr   error

	upsertedCases    []domain.DailyCaseRecord
	upsertedVaccines []domain.DailyVaccineRecord
	upsertErr        error
	invokes          []invoke
}

func (m *mockDatabase) LatestReportingDate(_ context.Context, table string) (time.Time, bool, error) {
	if m.latestErr != nil {
		return time.Time{}, false, m.latestErr
	}
	latest, ok := m.latest[table]
	return latest, ok, nil
}

func (m *mockDatabase) UpsertCases(_ context.Context, records []domain.DailyCaseRecord, _ int) (int, error) {
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	m.upsertedCases = append(m.upsertedCases, records...)
	return len(records), nil
}

func (m *mockDatabase) UpsertVaccines(_ context.Context, records []domain.DailyVaccineRecord, _ int) (int, error) {
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	m.upsertedVaccines = append(m.upsertedVaccines, records...)
	return len(records), nil
}

func (m *mockDatabase) LatestVaccineTotals(_ context.Context) (domain.DailyVaccineRecord, bool, error) {
	if m.vaccineLast == nil {
		return domain.DailyVaccineRecord{}, false, nil
	}
	return *m.vaccineLast, true, nil
}

func (m *mockDatabase) CaseOnDate(_ context.Context, day time.Time) (domain.DailyCaseRecord, bool, error) {
	rec, ok := m.caseRows[day.Format(domain.ISODateLayout)]
	return rec, ok, nil
}

func (m *mockDatabase) RecordInvoke(_ context.Context, functionName string, newData bool) error {
	m.invokes = append(m.invokes, invoke{function: functionName, newData: newData})
	return nil
}

type alert struct {
	subject string
	message string
}

type mockNotifier struct {
	alerts []alert
	err    error
}

func (m *mockNotifier) Publish(_ context.Context, subject, message string) error {
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, alert{subject: subject, message: message})
	return nil
}

type mockInvalidator struct {
	calls int
	err   error
}

func (m *mockInvalidator) Invalidate(_ context.Context) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use unregistered metrics to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}
