// Package tasks 门户的定时任务
package tasks

import (
	"github.com/robfig/cron/v3"

	"gdg-portal/internal/pkg/log"
)

// DefaultSchedule 每 5 分钟执行一次（秒 分 时 日 月 周）
const DefaultSchedule = "0 */5 * * * *"

// FlowSweeper 清理进程内过期的验证流程，Redis 存储由 TTL 自行过期
type FlowSweeper interface {
	Sweep() int
}

// SessionPurger 清理过期的会话缓存
type SessionPurger interface {
	Purge() int
}

// SweepTask 定时清理被放弃的验证流程与过期会话缓存
type SweepTask struct {
	flows    FlowSweeper
	sessions SessionPurger
	schedule string
	logger   log.Logger
	cron     *cron.Cron
}

// NewSweepTask 创建清理任务；flows 或 sessions 为 nil 时跳过对应清理
func NewSweepTask(flows FlowSweeper, sessions SessionPurger, schedule string, logger log.Logger) *SweepTask {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &SweepTask{
		flows:    flows,
		sessions: sessions,
		schedule: schedule,
		logger:   logger,
	}
}

// Start 启动定时任务
func (t *SweepTask) Start() error {
	t.cron = cron.New(cron.WithSeconds())

	if _, err := t.cron.AddFunc(t.schedule, t.Run); err != nil {
		t.logger.Error("【定时任务】添加清理任务失败", err, "schedule", t.schedule)
		return err
	}

	t.cron.Start()
	t.logger.Info("【定时任务】已启动 - 清理过期验证流程与会话缓存", "schedule", t.schedule)
	return nil
}

// Run 执行一次清理
func (t *SweepTask) Run() {
	var flows, sessions int
	if t.flows != nil {
		flows = t.flows.Sweep()
	}
	if t.sessions != nil {
		sessions = t.sessions.Purge()
	}
	if flows+sessions > 0 {
		t.logger.Info("【定时任务】清理完成",
			"flows_removed", flows,
			"sessions_removed", sessions)
	}
}

// Stop 停止定时任务，等待执行中的清理结束
func (t *SweepTask) Stop() {
	if t.cron != nil {
		t.logger.Info("【定时任务】正在停止定时任务...")
		ctx := t.cron.Stop()
		<-ctx.Done()
		t.logger.Info("【定时任务】定时任务已停止")
	}
}
