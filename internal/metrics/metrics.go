package metrics

import (
	"fmt"
	"net/http"

	vm "github.com/VictoriaMetrics/metrics"
)

// Counters shared across components. Names follow the
// okeeper_<component>_<event>_total convention.
var (
	RemindersArmed    = vm.NewCounter("okeeper_reminders_armed_total")
	RemindersFired    = vm.NewCounter("okeeper_reminders_fired_total")
	RemindersCanceled = vm.NewCounter("okeeper_reminders_canceled_total")
	RemindersStale    = vm.NewCounter("okeeper_reminders_stale_total")

	RecommendationsServed = vm.NewCounter("okeeper_recommendations_served_total")
	RankingFallbacks      = vm.NewCounter("okeeper_ranking_fallbacks_total")
	RankingFailures       = vm.NewCounter("okeeper_ranking_failures_total")
)

// Serve exposes the metrics endpoint on the given port. It blocks, so run
// it in a goroutine.
func Serve(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
		vm.WritePrometheus(w, true)
	})

	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
