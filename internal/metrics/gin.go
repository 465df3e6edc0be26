package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedRoute 汇总所有未命中路由的请求，避免扫描器把任意路径写进标签。
const unmatchedRoute = "unmatched"

var (
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slidestudio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时分布（秒），按路由分组。",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "class"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidestudio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP 请求总数。",
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "slidestudio",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "正在处理的请求数量，按资源分组。",
		},
		[]string{"resource"},
	)
)

// 探活与抓取本身不计入。
var skipRoutes = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// GinMiddleware 采集 API 的请求指标。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := RouteLabel(c.FullPath())
		if _, skip := skipRoutes[route]; skip {
			c.Next()
			return
		}

		resource := routeResource(route)
		httpInFlight.WithLabelValues(resource).Inc()
		start := time.Now()

		c.Next()

		httpInFlight.WithLabelValues(resource).Dec()
		code := c.Writer.Status()
		httpDuration.WithLabelValues(c.Request.Method, route, statusClass(code)).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(code)).Inc()
	}
}

// RouteLabel 返回路由模板；未命中路由时统一为 unmatched。
func RouteLabel(fullPath string) string {
	if fullPath == "" {
		return unmatchedRoute
	}
	return fullPath
}

// routeResource 取 /v1 之后的第一段，例如 /v1/editor/sessions/:sid 归为 editor。
func routeResource(route string) string {
	rest, ok := strings.CutPrefix(route, "/v1/")
	if !ok {
		return unmatchedRoute
	}
	if head, _, found := strings.Cut(rest, "/"); found {
		return head
	}
	return rest
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
