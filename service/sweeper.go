package service

import (
	"context"
	"log"
	"time"
)

// DefaultRetention 回收站默认保留时长
const DefaultRetention = 30 * 24 * time.Hour

// Purger 批量清理回收站
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSweeper 定期清理超过保留期的回收站记录（跨所有用户）
type RetentionSweeper struct {
	store     Purger
	retention time.Duration
	now       func() time.Time
}

// NewRetentionSweeper 创建回收站清理任务，retention <= 0 时使用默认 30 天
func NewRetentionSweeper(store Purger, retention time.Duration) *RetentionSweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RetentionSweeper{
		store:     store,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Cutoff 本次清理的截止时间，deleted_at 早于该时间的记录会被删除
func (s *RetentionSweeper) Cutoff() time.Time {
	return s.now().Add(-s.retention)
}

// Sweep 执行一次清理
func (s *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.Cutoff()
	n, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("回收站清理失败 (cutoff=%s): %v", cutoff.Format(time.RFC3339), err)
		return 0, err
	}
	if n > 0 {
		log.Printf("回收站清理完成: 删除 %d 条记录 (cutoff=%s)", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// Run 供调度器调用
func (s *RetentionSweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}
