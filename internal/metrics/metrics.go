// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Presence channel
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rendezvous_websocket_connections",
			Help: "Current number of open presence channel connections",
		},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_websocket_messages_received_total",
			Help: "Presence channel events received from clients",
		},
		[]string{"event"},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_websocket_messages_sent_total",
			Help: "Presence channel events delivered to clients",
		},
		[]string{"event"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_websocket_errors_total",
			Help: "Presence channel errors",
		},
		[]string{"error_type"}, // upgrade, read, write, decode, slow_client
	)

	// Room registry
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rendezvous_rooms_active",
			Help: "Rooms with at least one connected member on this instance",
		},
	)

	RoomMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rendezvous_room_members",
			Help: "Room memberships held by connected clients on this instance",
		},
	)

	RoomJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_room_joins_total",
			Help: "Room joins by role",
		},
		[]string{"role"},
	)

	// Meeting point negotiation
	MeetingPointOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_meeting_point_requests_total",
			Help: "Meeting point designation attempts by outcome",
		},
		[]string{"outcome"}, // set, rejected, invalid, error
	)

	// Durable store
	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_store_writes_total",
			Help: "Room store writes by key kind and result",
		},
		[]string{"kind", "result"},
	)

	StoreWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rendezvous_store_write_duration_seconds",
			Help:    "Room store write latency",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"kind"},
	)

	StoreChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_store_changes_total",
			Help: "Change notifications dispatched from the room store",
		},
		[]string{"kind"},
	)

	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_store_gc_runs_total",
			Help: "Value log GC passes by result",
		},
		[]string{"result"}, // ok, error
	)

	// Outbound lookups
	MapLinkResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_maplink_resolutions_total",
			Help: "Map link coordinate resolutions by outcome",
		},
		[]string{"outcome"}, // found, not_found, error, cached
	)

	GeocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_geocode_requests_total",
			Help: "Geocoding searches by outcome",
		},
		[]string{"outcome"}, // found, empty, error, cached
	)

	GeocodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rendezvous_geocode_duration_seconds",
			Help:    "Upstream geocoding latency, including rate limiter wait",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Cross-instance bus
	BusPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_bus_published_total",
			Help: "Room broadcasts published to the bus",
		},
		[]string{"result"},
	)

	BusDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rendezvous_bus_delivered_total",
			Help: "Room broadcasts received from the bus and delivered locally",
		},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_cache_hits_total",
			Help: "Cache hits by cache",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_cache_misses_total",
			Help: "Cache misses by cache",
		},
		[]string{"cache_type"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rendezvous_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_circuit_breaker_requests_total",
			Help: "Requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rendezvous_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rendezvous_api_active_requests",
			Help: "In-flight HTTP requests",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordStoreWrite records one room store write.
func RecordStoreWrite(kind string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StoreWrites.WithLabelValues(kind, result).Inc()
	StoreWriteDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordRoomJoin counts a join and refreshes the registry gauges.
func RecordRoomJoin(role string, rooms, members int) {
	RoomJoins.WithLabelValues(role).Inc()
	SetRoomGauges(rooms, members)
}

// SetRoomGauges sets the registry gauges.
func SetRoomGauges(rooms, members int) {
	RoomsActive.Set(float64(rooms))
	RoomMembers.Set(float64(members))
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}
