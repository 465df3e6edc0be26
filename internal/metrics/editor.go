package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 保存结果标签。
const (
	SaveInserted   = "inserted"
	SaveUpdated    = "updated"
	SaveRejected   = "rejected"
	SaveFailed     = "failed"
	SaveInProgress = "in_progress"
)

var (
	editorSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidestudio",
			Subsystem: "editor",
			Name:      "saves_total",
			Help:      "编辑器保存次数（按结果）。",
		},
		[]string{"outcome"},
	)

	editorSessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "slidestudio",
			Subsystem: "editor",
			Name:      "sessions_open",
			Help:      "当前打开的编辑会话数量。",
		},
	)

	mediaUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidestudio",
			Subsystem: "media",
			Name:      "uploads_total",
			Help:      "媒体上传次数（按结果）。",
		},
		[]string{"outcome"},
	)
)

// ObserveSave 记录一次保存结果。
func ObserveSave(outcome string) {
	editorSavesTotal.WithLabelValues(outcome).Inc()
}

// SetOpenSessions 更新打开的编辑会话数量。
func SetOpenSessions(n int) {
	editorSessionsOpen.Set(float64(n))
}

// ObserveUpload 记录一次媒体上传结果。
func ObserveUpload(outcome string) {
	mediaUploadsTotal.WithLabelValues(outcome).Inc()
}
