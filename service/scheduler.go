package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// JobFunc 定时任务
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
}

// Scheduler 按固定间隔执行已注册的任务
//
// 单次任务失败或 panic 只记录日志，下一个周期照常执行。
type Scheduler struct {
	mu      sync.Mutex
	jobs    []job
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewScheduler 创建调度器
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Register 注册任务，需在 Start 之前调用
func (s *Scheduler) Register(name string, interval time.Duration, fn JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("任务 %s 的执行间隔必须大于 0", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("调度器已启动，无法注册任务 %s", name)
	}
	s.jobs = append(s.jobs, job{name: name, interval: interval, run: fn})
	return nil
}

// Start 为每个任务启动一个定时循环，启动时先执行一次
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	log.Printf("定时任务调度器已启动，共 %d 个任务", len(s.jobs))
}

// Stop 停止所有任务并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("定时任务调度器已停止")
}

// RunNow 同步执行所有任务一次，返回失败的任务数
func (s *Scheduler) RunNow(ctx context.Context) int {
	s.mu.Lock()
	jobs := append([]job(nil), s.jobs...)
	s.mu.Unlock()

	failed := 0
	for _, j := range jobs {
		if err := s.runJob(ctx, j); err != nil {
			failed++
		}
	}
	return failed
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()

	s.runJob(ctx, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, j)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Printf("定时任务 %s 异常: %v", j.name, r)
		}
	}()

	if err = j.run(ctx); err != nil {
		log.Printf("定时任务 %s 执行失败: %v", j.name, err)
	}
	return err
}
