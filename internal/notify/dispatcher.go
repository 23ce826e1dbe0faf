package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sendTimeout = 30 * time.Second

type job struct {
	to   string
	path string
}

// Dispatcher отправляет чеки в фоне. Ошибка доставки только логируется,
// продажа к этому моменту уже сохранена.
type Dispatcher struct {
	sender Sender
	log    *zap.Logger
	queue  chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender Sender, workers, queueSize int, log *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		sender: sender,
		log:    log,
		queue:  make(chan job, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	return d
}

// Enqueue не блокируется. Возвращает false, если очередь заполнена или закрыта.
func (d *Dispatcher) Enqueue(to, path string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- job{to: to, path: path}:
		return true
	default:
		d.log.Warn("receipt queue full, dropping email", zap.String("to", to), zap.String("path", path))
		return false
	}
}

// Close закрывает приём и ждёт отправки всего, что уже в очереди.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) workerLoop(id int) {
	for j := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := d.sender.Send(ctx, j.to, j.path); err != nil {
			d.log.Error("failed to email receipt",
				zap.Int("worker", id),
				zap.String("to", j.to),
				zap.String("path", j.path),
				zap.Error(err))
		} else {
			d.log.Info("receipt emailed", zap.Int("worker", id), zap.String("to", j.to))
		}
		cancel()
	}
}
