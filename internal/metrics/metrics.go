package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

type Registry struct {
	notifications atomic.Int64
	rearms        atomic.Int64
	waitTimeouts  atomic.Int64
	registrations atomic.Int64
	fatalErrors   sync.Map
	busEvents     sync.Map
}

type busStats struct {
	published   atomic.Int64
	dropped     atomic.Int64
	subscribers atomic.Int64
}

var Default = &Registry{}

func (r *Registry) IncNotifications() {
	if r == nil {
		return
	}
	r.notifications.Add(1)
}

func (r *Registry) IncRearms() {
	if r == nil {
		return
	}
	r.rearms.Add(1)
}

func (r *Registry) IncWaitTimeouts() {
	if r == nil {
		return
	}
	r.waitTimeouts.Add(1)
}

func (r *Registry) IncRegistrations() {
	if r == nil {
		return
	}
	r.registrations.Add(1)
}

func (r *Registry) IncFatalError(kind string) {
	if r == nil {
		return
	}
	if strings.TrimSpace(kind) == "" {
		kind = "unknown"
	}
	value, _ := r.fatalErrors.LoadOrStore(kind, new(atomic.Int64))
	value.(*atomic.Int64).Add(1)
}

func (r *Registry) IncEventPublished(bus string) {
	if r == nil {
		return
	}
	r.busStats(bus).published.Add(1)
}

func (r *Registry) IncEventDropped(bus string) {
	if r == nil {
		return
	}
	r.busStats(bus).dropped.Add(1)
}

func (r *Registry) SetEventSubscribers(bus string, count int) {
	if r == nil {
		return
	}
	r.busStats(bus).subscribers.Store(int64(count))
}

// Snapshot is a point-in-time copy of the watch counters.
type Snapshot struct {
	Notifications int64
	Rearms        int64
	WaitTimeouts  int64
	Registrations int64
	FatalErrors   map[string]int64
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	snapshot := Snapshot{
		Notifications: r.notifications.Load(),
		Rearms:        r.rearms.Load(),
		WaitTimeouts:  r.waitTimeouts.Load(),
		Registrations: r.registrations.Load(),
		FatalErrors:   map[string]int64{},
	}
	r.fatalErrors.Range(func(key, value any) bool {
		snapshot.FatalErrors[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return snapshot
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "dirwatch_notifications_total", "Change notifications emitted", r.notifications.Load())
	writeCounter(writer, "dirwatch_rearms_total", "Successful watch re-arms", r.rearms.Load())
	writeCounter(writer, "dirwatch_wait_timeouts_total", "Waits that ended without a change", r.waitTimeouts.Load())
	writeCounter(writer, "dirwatch_registrations_total", "Watch registrations", r.registrations.Load())

	writeHelp(writer, "dirwatch_fatal_errors_total", "Fatal watch errors by kind")
	fmt.Fprintln(writer, "# TYPE dirwatch_fatal_errors_total counter")
	kinds := sortedKeys(&r.fatalErrors)
	for _, kind := range kinds {
		value, _ := r.fatalErrors.Load(kind)
		fmt.Fprintf(writer, "dirwatch_fatal_errors_total{kind=%s} %d\n", formatLabel(kind), value.(*atomic.Int64).Load())
	}

	buses := sortedKeys(&r.busEvents)
	writeHelp(writer, "dirwatch_bus_events_published_total", "Events published on a bus")
	fmt.Fprintln(writer, "# TYPE dirwatch_bus_events_published_total counter")
	writeHelp(writer, "dirwatch_bus_events_dropped_total", "Events dropped for slow subscribers")
	fmt.Fprintln(writer, "# TYPE dirwatch_bus_events_dropped_total counter")
	writeHelp(writer, "dirwatch_bus_subscribers", "Current bus subscribers")
	fmt.Fprintln(writer, "# TYPE dirwatch_bus_subscribers gauge")
	for _, name := range buses {
		stats := r.busStats(name)
		label := formatLabel(name)
		fmt.Fprintf(writer, "dirwatch_bus_events_published_total{bus=%s} %d\n", label, stats.published.Load())
		fmt.Fprintf(writer, "dirwatch_bus_events_dropped_total{bus=%s} %d\n", label, stats.dropped.Load())
		fmt.Fprintf(writer, "dirwatch_bus_subscribers{bus=%s} %d\n", label, stats.subscribers.Load())
	}

	return nil
}

func (r *Registry) busStats(name string) *busStats {
	if strings.TrimSpace(name) == "" {
		name = "event_bus"
	}
	value, _ := r.busEvents.LoadOrStore(name, &busStats{})
	return value.(*busStats)
}

func sortedKeys(values *sync.Map) []string {
	var keys []string
	values.Range(func(key, _ any) bool {
		if name, ok := key.(string); ok {
			keys = append(keys, name)
		}
		return true
	})
	sort.Strings(keys)
	return keys
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
