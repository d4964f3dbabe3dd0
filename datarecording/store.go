package datarecording

import (
	"context"
	"time"
)

// Tables of the telemetry service.
const (
	ValueTable   = "value_history"
	CommandTable = "command_log"
	CallTable    = "elevator_calls"
)

// ValueEntry is one write of the shared value. Time is in Unix milliseconds.
type ValueEntry struct {
	Time  int64
	Value float64
}

// CommandEntry is one start or stop command.
type CommandEntry struct {
	Time    int64
	Command string
}

// CallEntry is one elevator call.
type CallEntry struct {
	Time       int64
	ElevatorID int
	Floor      int
}

// Store records the telemetry service's history. Every record is flushed at
// once so that it can be read back immediately.
type Store struct {
	recorder DataRecorder
	reader   DataReader
}

// NewStore creates the tables on w and reads them back through the same
// database.
func NewStore(w *SQLiteWriter) *Store {
	s := &Store{
		recorder: w,
		reader:   NewReaderWithDB(w.DB),
	}

	for name, entry := range map[string]any{
		ValueTable:   ValueEntry{},
		CommandTable: CommandEntry{},
		CallTable:    CallEntry{},
	} {
		w.CreateTable(name, entry)
		s.reader.MapTable(name, entry)
	}

	return s
}

// Recorder returns the underlying recorder.
func (s *Store) Recorder() DataRecorder {
	return s.recorder
}

func (s *Store) record(table string, entry any) error {
	s.recorder.InsertData(table, entry)
	return s.recorder.Flush()
}

// RecordValue records a write of the shared value.
func (s *Store) RecordValue(at time.Time, v float64) error {
	return s.record(ValueTable, ValueEntry{Time: at.UnixMilli(), Value: v})
}

// RecordCommand records a start or stop command.
func (s *Store) RecordCommand(at time.Time, command string) error {
	return s.record(CommandTable, CommandEntry{
		Time:    at.UnixMilli(),
		Command: command,
	})
}

// RecordCall records an elevator call.
func (s *Store) RecordCall(at time.Time, elevatorID, floor int) error {
	return s.record(CallTable, CallEntry{
		Time:       at.UnixMilli(),
		ElevatorID: elevatorID,
		Floor:      floor,
	})
}

// LatestValues returns up to n of the most recent values, oldest first.
func (s *Store) LatestValues(ctx context.Context, n int) ([]ValueEntry, error) {
	results, _, err := s.reader.Query(ctx, ValueTable, QueryParams{
		OrderBy: "Time DESC, rowid DESC",
		Limit:   n,
	})
	if err != nil {
		return nil, err
	}

	values := make([]ValueEntry, len(results))
	for i, r := range results {
		values[len(results)-1-i] = *r.(*ValueEntry)
	}

	return values, nil
}

// Commands returns the command log, oldest first.
func (s *Store) Commands(ctx context.Context) ([]CommandEntry, error) {
	results, _, err := s.reader.Query(ctx, CommandTable, QueryParams{
		OrderBy: "rowid",
	})
	if err != nil {
		return nil, err
	}

	commands := make([]CommandEntry, 0, len(results))
	for _, r := range results {
		commands = append(commands, *r.(*CommandEntry))
	}

	return commands, nil
}

// Calls returns the calls made to one elevator, oldest first.
func (s *Store) Calls(ctx context.Context, elevatorID int) ([]CallEntry, error) {
	results, _, err := s.reader.Query(ctx, CallTable, QueryParams{
		Where:   "ElevatorID = ?",
		Args:    []any{elevatorID},
		OrderBy: "rowid",
	})
	if err != nil {
		return nil, err
	}

	calls := make([]CallEntry, 0, len(results))
	for _, r := range results {
		calls = append(calls, *r.(*CallEntry))
	}

	return calls, nil
}
