package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parking-engine/internal/parking"
)

// engineCollector reports lot state at scrape time.
type engineCollector struct {
	handler *Handler

	slots    *prometheus.Desc
	vehicles *prometheus.Desc
	parked   *prometheus.Desc
}

func newEngineCollector(h *Handler) *engineCollector {
	return &engineCollector{
		handler: h,
		slots: prometheus.NewDesc("parking_engine_slots",
			"Slots in the lot by size and state.",
			[]string{"size", "state"}, nil),
		vehicles: prometheus.NewDesc("parking_engine_vehicles_known",
			"Vehicles with a record in the ledger.", nil, nil),
		parked: prometheus.NewDesc("parking_engine_vehicles_parked",
			"Vehicles currently parked.", nil, nil),
	}
}

func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.slots
	ch <- c.vehicles
	ch <- c.parked
}

func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	engine := c.handler.Engine()
	if engine == nil {
		return
	}

	type key struct {
		size   parking.Size
		vacant bool
	}
	counts := make(map[key]int)
	for _, slot := range engine.Engine.Slots() {
		counts[key{slot.Size, slot.IsVacant}]++
	}
	for _, size := range []parking.Size{parking.Small, parking.Medium, parking.Large} {
		ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue,
			float64(counts[key{size, true}]), size.String(), "vacant")
		ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue,
			float64(counts[key{size, false}]), size.String(), "occupied")
	}

	vehicles := engine.Engine.Vehicles()
	parked := 0
	for _, v := range vehicles {
		if v.IsParked {
			parked++
		}
	}
	ch <- prometheus.MustNewConstMetric(c.vehicles, prometheus.GaugeValue, float64(len(vehicles)))
	ch <- prometheus.MustNewConstMetric(c.parked, prometheus.GaugeValue, float64(parked))
}

func newRegistry(h *Handler) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newEngineCollector(h),
	)
	return registry
}
