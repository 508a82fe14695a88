package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
	"github.com/AltioraPro/altiora-bot/internal/biz/usecase"
	"github.com/AltioraPro/altiora-bot/internal/metrics"
)

const (
	logBatchSize     = 10
	logInterBatch    = time.Second
	logRecentRingCap = 100
)

// LogSink delivers a batch of log entries to the log channel
type LogSink interface {
	SendBatch(ctx context.Context, entries []domain.LogEntry) error
}

// LogQueue batches log entries and flushes them asynchronously to the
// sink. At most one flush loop runs at a time; enqueue never blocks on
// delivery.
type LogQueue struct {
	sink      LogSink
	collector *metrics.Collector

	interBatch time.Duration

	mu       sync.Mutex
	pending  []domain.LogEntry
	flushing bool
	recent   []string
	wg       sync.WaitGroup
}

// NewLogQueue creates a log queue flushing to the given sink
func NewLogQueue(sink LogSink, collector *metrics.Collector) *LogQueue {
	return &LogQueue{
		sink:       sink,
		collector:  collector,
		interBatch: logInterBatch,
	}
}

// Enqueue adds an entry and starts the flush loop if idle
func (q *LogQueue) Enqueue(entry domain.LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	q.mu.Lock()
	q.pending = append(q.pending, entry)
	q.recordRecent(entry)
	start := !q.flushing
	if start {
		q.flushing = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if start {
		go q.flushLoop()
	}
}

// Recent returns up to n most recent formatted log lines, oldest first
func (q *LogQueue) Recent(n int) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n > len(q.recent) {
		n = len(q.recent)
	}
	out := make([]string, n)
	copy(out, q.recent[len(q.recent)-n:])
	return out
}

// Drain blocks until the queue is empty and the flush loop has stopped
func (q *LogQueue) Drain() {
	q.wg.Wait()
}

// recordRecent appends to the ring buffer; caller holds q.mu
func (q *LogQueue) recordRecent(entry domain.LogEntry) {
	line := fmt.Sprintf("[%s] %s %s", entry.Level, entry.Timestamp.Format("15:04:05"), entry.Message)
	q.recent = append(q.recent, line)
	if len(q.recent) > logRecentRingCap {
		q.recent = q.recent[len(q.recent)-logRecentRingCap:]
	}
}

// flushLoop drains the queue in batches until it is empty, then exits.
// A fresh loop starts on the next enqueue.
func (q *LogQueue) flushLoop() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.flushing = false
			q.mu.Unlock()
			return
		}
		n := len(q.pending)
		if n > logBatchSize {
			n = logBatchSize
		}
		batch := make([]domain.LogEntry, n)
		copy(batch, q.pending[:n])
		q.pending = q.pending[n:]
		more := len(q.pending) > 0
		q.mu.Unlock()

		q.sendBatch(batch)

		if more {
			time.Sleep(q.interBatch)
		}
	}
}

// sendBatch delivers one batch, falling back to console output when the
// sink fails so entries are never lost silently.
func (q *LogQueue) sendBatch(batch []domain.LogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := q.sink.SendBatch(ctx, batch)
	if q.collector != nil {
		q.collector.RecordLogBatch(err == nil)
	}
	if err != nil {
		fmt.Printf("[LogQueue] Failed to send batch: %v\n", err)
		for _, entry := range batch {
			fmt.Printf("[LogQueue] %s: %s\n", entry.Level, entry.Message)
		}
	}
}

// ChannelSink delivers log batches to a chat channel as one embed per
// batch. An empty channel ID disables delivery so entries only reach
// the console.
type ChannelSink struct {
	messages  repo.MessageRepo
	channelID string
}

// NewChannelSink creates a sink posting to the given log channel
func NewChannelSink(messages repo.MessageRepo, channelID string) *ChannelSink {
	return &ChannelSink{messages: messages, channelID: channelID}
}

// SendBatch renders the batch into one notification and posts it
func (s *ChannelSink) SendBatch(ctx context.Context, entries []domain.LogEntry) error {
	if s.channelID == "" {
		return fmt.Errorf("no log channel configured")
	}
	_, err := s.messages.SendNotification(ctx, s.channelID, usecase.RenderLogBatch(entries))
	return err
}

// Logger is a component-scoped logger that mirrors every entry to the
// console and enqueues it for channel delivery.
type Logger struct {
	component string
	queue     *LogQueue
}

// NewLogger creates a logger for one component
func NewLogger(component string, queue *LogQueue) *Logger {
	return &Logger{component: component, queue: queue}
}

// Error logs at error level
func (l *Logger) Error(msg string, data map[string]any) {
	l.log(domain.LogError, msg, data)
}

// Warn logs at warn level
func (l *Logger) Warn(msg string, data map[string]any) {
	l.log(domain.LogWarn, msg, data)
}

// Info logs at info level
func (l *Logger) Info(msg string, data map[string]any) {
	l.log(domain.LogInfo, msg, data)
}

// Success logs at success level
func (l *Logger) Success(msg string, data map[string]any) {
	l.log(domain.LogSuccess, msg, data)
}

func (l *Logger) log(level domain.LogLevel, msg string, data map[string]any) {
	fmt.Printf("[%s] %s\n", l.component, msg)
	if l.queue == nil {
		return
	}
	l.queue.Enqueue(domain.LogEntry{
		Level:     level,
		Message:   fmt.Sprintf("[%s] %s", l.component, msg),
		Data:      data,
		Timestamp: time.Now(),
	})
}
