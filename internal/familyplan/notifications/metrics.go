package notifications

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "familyplan_notifications_sent_total",
		Help: "Delivered family notifications",
	})
	notificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "familyplan_notifications_failed_total",
		Help: "Family notifications lost to transport errors",
	})
	digestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "familyplan_digests_sent_total",
		Help: "Delivered daily digest messages",
	})
)
