// Package metrics はPrometheusメトリクスを定義します
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveask_rooms_created_total",
		Help: "Total rooms created",
	})

	RoomsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveask_rooms_ended_total",
		Help: "Total rooms ended",
	})

	QuestionsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveask_questions_submitted_total",
		Help: "Total questions submitted",
	})

	QuestionsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveask_questions_deleted_total",
		Help: "Total questions deleted by moderators",
	})

	QuestionsModerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liveask_questions_moderated_total",
		Help: "Total moderation flag updates",
	}, []string{"action"}) // "answered" または "highlighted"

	QuestionLikes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveask_question_likes_total",
		Help: "Total likes submitted",
	})

	RoomWatchers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "liveask_room_watchers",
		Help: "Currently active room watchers",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liveask_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})
)
