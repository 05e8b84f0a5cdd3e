package pantrycook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ConsumptionLogger records what a recipe completion drew from the pantry.
type ConsumptionLogger interface {
	LogConsumption(entry ConsumptionLog) error
}

// NewConsumptionLogFilePath returns a log path named after the recipe so runs are easy to find.
func NewConsumptionLogFilePath(recipeID string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(recipeID), " ", "_"),
	)
}

// ConsumptionLog is one ingredient of one recipe run.
type ConsumptionLog struct {
	Timestamp  time.Time `json:"timestamp"`
	RecipeID   string    `json:"recipe_id,omitempty"`
	Ingredient string    `json:"ingredient"`
	Status     string    `json:"status"`
	DryRun     bool      `json:"dry_run,omitempty"`
	Result     any       `json:"result"`
	Warnings   []string  `json:"warnings,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// FileConsumptionLogger accumulates entries and writes them as one JSON document on Flush.
type FileConsumptionLogger struct {
	mu      sync.Mutex
	entries []ConsumptionLog
	writer  io.Writer
}

func NewFileConsumptionLogger(writer io.Writer) *FileConsumptionLogger {
	return &FileConsumptionLogger{
		entries: make([]ConsumptionLog, 0),
		writer:  writer,
	}
}

// LogConsumption buffers the entry (does not flush immediately)
func (l *FileConsumptionLogger) LogConsumption(entry ConsumptionLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Flush flushes all accumulated entries to the writer
func (l *FileConsumptionLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"consumption_session": map[string]any{
			"timestamp": time.Now(),
			"entries":   l.entries,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal consumption log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write consumption log: %w", err)
	}

	l.entries = l.entries[:0]
	return nil
}

// NoOpConsumptionLogger discards all log entries
type NoOpConsumptionLogger struct{}

func NewNoOpConsumptionLogger() *NoOpConsumptionLogger {
	return &NoOpConsumptionLogger{}
}

func (nop *NoOpConsumptionLogger) LogConsumption(entry ConsumptionLog) error {
	return nil
}

// StdoutConsumptionLogger writes each entry as a JSON line (for Lambda/CloudWatch)
type StdoutConsumptionLogger struct {
	mu  sync.Mutex
	out io.Writer
}

func NewStdoutConsumptionLogger() *StdoutConsumptionLogger {
	return &StdoutConsumptionLogger{out: os.Stdout}
}

func (l *StdoutConsumptionLogger) LogConsumption(entry ConsumptionLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintln(l.out, string(data))
	return err
}
