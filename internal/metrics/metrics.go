package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_otp_requests_total",
		Help: "OTP issue attempts by channel and result.",
	}, []string{"channel", "result"})

	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_otp_verifications_total",
		Help: "OTP verification attempts by channel and result.",
	}, []string{"channel", "result"})

	OTPPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_otp_purged_total",
		Help: "Expired OTP records physically removed.",
	})

	OrderAdmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_admissions_total",
		Help: "Order admission outcomes; result is \"admitted\" or the rejection kind.",
	}, []string{"result"})

	ShopLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_shop_lookups_total",
		Help: "Remote shop directory lookups by outcome.",
	}, []string{"outcome"})

	OrderStatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_updates_total",
		Help: "Order status changes by target status.",
	}, []string{"status"})
)
