package prometheus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nyan233/workerpool"
	prom "github.com/prometheus/client_golang/prometheus"
)

// StatsProvider 周期性被采样的池
type StatsProvider interface {
	Stats() workerpool.Stats
}

// SnapshotPoller 周期性把Stats()快照导出成prometheus的gauge
// 池本身不感知metrics, 采样完全发生在外部
type SnapshotPoller struct {
	interval time.Duration

	mu    sync.RWMutex
	pools map[string]StatsProvider

	workersTotal *prom.GaugeVec
	workersBusy  *prom.GaugeVec
	workersIdle  *prom.GaugeVec
	tasksPending *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}
	workersTotal := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workerpool",
		Name:      "workers_total",
		Help:      "池当前持有的worker数量",
	}, []string{"pool"})
	workersBusy := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workerpool",
		Name:      "workers_busy",
		Help:      "有在途任务的worker数量",
	}, []string{"pool"})
	workersIdle := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workerpool",
		Name:      "workers_idle",
		Help:      "可以立即接受任务的worker数量",
	}, []string{"pool"})
	tasksPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workerpool",
		Name:      "tasks_pending",
		Help:      "排队等待派发的任务数量",
	}, []string{"pool"})
	var err error
	if workersTotal, err = registerCollector(reg, workersTotal); err != nil {
		return nil, err
	}
	if workersBusy, err = registerCollector(reg, workersBusy); err != nil {
		return nil, err
	}
	if workersIdle, err = registerCollector(reg, workersIdle); err != nil {
		return nil, err
	}
	if tasksPending, err = registerCollector(reg, tasksPending); err != nil {
		return nil, err
	}
	return &SnapshotPoller{
		interval:     interval,
		pools:        make(map[string]StatsProvider),
		workersTotal: workersTotal,
		workersBusy:  workersBusy,
		workersIdle:  workersIdle,
		tasksPending: tasksPending,
	}, nil
}

// AddPool 按名字注册或替换被采样的池
func (p *SnapshotPoller) AddPool(name string, provider StatsProvider) {
	if provider == nil {
		return
	}
	if name == "" {
		name = "default"
	}
	p.mu.Lock()
	p.pools[name] = provider
	p.mu.Unlock()
}

// Start 开始周期性采样, 重复调用是no-op
func (p *SnapshotPoller) Start(ctx context.Context) {
	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()
	go p.loop(pollCtx)
}

// Stop 停止采样并等待采样循环退出, 重复调用是安全的
func (p *SnapshotPoller) Stop() {
	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()
	cancel()
	<-done
	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.CollectOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CollectOnce()
		}
	}
}

// CollectOnce 立即采样一轮
func (p *SnapshotPoller) CollectOnce() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.workersTotal.WithLabelValues(name).Set(float64(stats.TotalWorkers))
		p.workersBusy.WithLabelValues(name).Set(float64(stats.BusyWorkers))
		p.workersIdle.WithLabelValues(name).Set(float64(stats.IdleWorkers))
		p.tasksPending.WithLabelValues(name).Set(float64(stats.PendingTasks))
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}
	var already prom.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}
	return collector, err
}
