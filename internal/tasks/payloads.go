package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeSlideThumbnail = "slide:thumbnail"
)

// SlideThumbnailPayload 描述生成设计缩略图所需的最小信息。
type SlideThumbnailPayload struct {
	DesignID      uint   `json:"design_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewSlideThumbnailTask 构造缩略图任务。
func NewSlideThumbnailTask(designID, userID uint, correlationID string, maxRetry int) (*asynq.Task, error) {
	payload, err := json.Marshal(SlideThumbnailPayload{
		DesignID:      designID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.MaxRetry(maxRetry)}
	return asynq.NewTask(TypeSlideThumbnail, payload, opts...), nil
}
