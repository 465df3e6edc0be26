package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 任务结果标签。
const (
	TaskSucceeded = "succeeded"
	TaskRetrying  = "retrying"
	TaskDropped   = "dropped"
)

var (
	taskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidestudio",
			Subsystem: "worker",
			Name:      "task_runs_total",
			Help:      "后台任务执行次数（按结果）。",
		},
		[]string{"task_type", "outcome"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slidestudio",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "后台任务耗时（秒），缩略图渲染通常在数秒内。",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"task_type"},
	)

	taskRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "slidestudio",
			Subsystem: "worker",
			Name:      "tasks_running",
			Help:      "正在执行的后台任务数量。",
		},
		[]string{"task_type"},
	)
)

// TaskOutcome 把处理结果归类：SkipRetry 视为丢弃，其余错误等待重试。
func TaskOutcome(err error) string {
	switch {
	case err == nil:
		return TaskSucceeded
	case errors.Is(err, asynq.SkipRetry):
		return TaskDropped
	default:
		return TaskRetrying
	}
}

// AsynqMetricsMiddleware 记录每种任务的执行次数、耗时与并发。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			kind := task.Type()
			running := taskRunning.WithLabelValues(kind)
			running.Inc()
			defer running.Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
			taskRuns.WithLabelValues(kind, TaskOutcome(err)).Inc()
			return err
		})
	}
}
