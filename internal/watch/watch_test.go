package watch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesRapidEvents(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)

	d := NewDebouncer(50*time.Millisecond, func(path string) {
		mu.Lock()
		calls = append(calls, path)
		mu.Unlock()
	})
	defer d.Stop()

	d.Trigger("a.yaml")
	d.Trigger("b.yaml")
	d.Trigger("c.yaml")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"c.yaml"}, calls)
}

func TestDebouncer_FiresAgainAfterQuietPeriod(t *testing.T) {
	var count atomic.Int32

	d := NewDebouncer(20*time.Millisecond, func(string) {
		count.Add(1)
	})
	defer d.Stop()

	d.Trigger("first")

	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)

	d.Trigger("second")

	require.Eventually(t, func() bool { return count.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	var count atomic.Int32

	d := NewDebouncer(30*time.Millisecond, func(string) {
		count.Add(1)
	})

	d.Trigger("x")
	d.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: "values.yaml", Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: "new.yaml", Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: "old.yaml", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "values.yaml", Op: fsnotify.Chmod}, false},
		{"no op", fsnotify.Event{Name: "values.yaml"}, false},
		{"hidden file", fsnotify.Event{Name: "dir/.hidden", Op: fsnotify.Write}, false},
		{"editor backup", fsnotify.Event{Name: "values.yaml~", Op: fsnotify.Write}, false},
		{"vim swap", fsnotify.Event{Name: ".values.yaml.swp", Op: fsnotify.Write}, false},
		{"emacs autosave", fsnotify.Event{Name: "#values.yaml#", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRelevant(tt.event))
		})
	}
}

func TestReportDiff(t *testing.T) {
	prev := []byte("converted:\n- name: app-web\nunconverted: []\n")
	curr := []byte("converted:\n- name: app-web\n- name: app-api\nunconverted: []\n")

	diff := ReportDiff(prev, curr)
	assert.Contains(t, diff, "+- name: app-api")
	assert.Contains(t, diff, "--- previous")
	assert.Contains(t, diff, "+++ current")
}

func TestReportDiff_NoChange(t *testing.T) {
	report := []byte("converted: []\n")

	assert.Empty(t, ReportDiff(report, report))
	assert.Empty(t, ReportDiff(nil, report))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 500*time.Millisecond, opts.Debounce)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Out)
}
