package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"daily-todo/internal/logger"
	"daily-todo/internal/model"
	"daily-todo/internal/sheet"
)

var (
	// ErrTitleRequired rejects a task without a title before the store is touched.
	ErrTitleRequired = errors.New("title is required")
	// ErrColumnNotFound means the header row lacks a column the task list needs.
	ErrColumnNotFound = errors.New("column not found in header row")
)

// TaskService reads and mutates today's tasks in a sheet. Every call goes to
// the table: nothing is cached between calls, and column positions are
// looked up in the header row on every write.
type TaskService struct {
	table sheet.Table
	log   *logger.Logger
	now   func() time.Time
	loc   *time.Location
}

// Option tweaks a TaskService.
type Option func(*TaskService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

// WithLocation sets the zone whose calendar day counts as today.
func WithLocation(loc *time.Location) Option {
	return func(s *TaskService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewTaskService(table sheet.Table, log *logger.Logger, opts ...Option) *TaskService {
	s := &TaskService{
		table: table,
		log:   log.WithComponent("task_service"),
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current date as stored in the Datum column.
func (s *TaskService) Today() string {
	return s.clock().Format(model.DateLayout)
}

func (s *TaskService) clock() time.Time {
	return s.now().In(s.loc)
}

// FetchToday returns the tasks dated today that are not deleted, in sheet order.
func (s *TaskService) FetchToday(ctx context.Context) ([]model.Task, error) {
	rows, err := s.table.ReadAllRows(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	tasks := make([]model.Task, 0)
	for _, row := range rows {
		if !visibleOn(row, today) {
			continue
		}
		tasks = append(tasks, s.taskFromRow(row))
	}
	return tasks, nil
}

// CreateTask appends a new task dated today. Its ID is one more than the
// highest ID in the sheet, deleted rows included, so IDs are never reused.
func (s *TaskService) CreateTask(ctx context.Context, title, link string) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	rows, err := s.table.ReadAllRows(ctx)
	if err != nil {
		return nil, err
	}
	header, err := s.table.ReadHeaderRow(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	task := model.Task{
		ID:           maxID(rows) + 1,
		Title:        title,
		Link:         strings.TrimSpace(link),
		Date:         now.Format(model.DateLayout),
		LastModified: now,
	}

	values, err := rowValues(header, task)
	if err != nil {
		return nil, err
	}
	if err := s.table.AppendRow(ctx, values); err != nil {
		return nil, err
	}

	s.log.Infow("task created", "task_id", task.ID, "date", task.Date)
	return &task, nil
}

// SetCompleted writes the Voltooid flag of a task and then its timestamp.
// An unknown ID is not an error: nothing is written.
func (s *TaskService) SetCompleted(ctx context.Context, taskID int, completed bool) error {
	return s.updateTaskCell(ctx, taskID, model.ColumnCompleted, model.FormatBool(completed))
}

// SoftDelete flags a task as deleted. The row stays in the sheet.
func (s *TaskService) SoftDelete(ctx context.Context, taskID int) error {
	return s.updateTaskCell(ctx, taskID, model.ColumnDeleted, model.FormatBool(true))
}

// updateTaskCell finds the first row with taskID and writes value to column,
// then the current time to Laatst Gewijzigd. The two writes are separate
// round trips; if the second fails the timestamp stays stale.
func (s *TaskService) updateTaskCell(ctx context.Context, taskID int, column, value string) error {
	rows, err := s.table.ReadAllRows(ctx)
	if err != nil {
		return err
	}

	target := strconv.Itoa(taskID)
	for i, row := range rows {
		if model.NormalizeID(row[model.ColumnID]) != target {
			continue
		}

		header, err := s.table.ReadHeaderRow(ctx)
		if err != nil {
			return err
		}
		col, err := columnIndex(header, column)
		if err != nil {
			return err
		}
		tsCol, err := columnIndex(header, model.ColumnLastModified)
		if err != nil {
			return err
		}

		rowIndex := sheet.RowIndex(i)
		if err := s.table.WriteCell(ctx, rowIndex, col, value); err != nil {
			return err
		}
		if err := s.table.WriteCell(ctx, rowIndex, tsCol, model.FormatTimestamp(s.clock())); err != nil {
			return err
		}
		s.log.Debugw("task updated", "task_id", taskID, "column", column, "value", value, "row", rowIndex)
		return nil
	}

	s.log.Warnw("task not found, nothing written", "task_id", taskID, "column", column)
	return nil
}

func (s *TaskService) taskFromRow(row sheet.Row) model.Task {
	id, _ := model.ParseID(row[model.ColumnID])
	completed, _ := model.ParseBool(row[model.ColumnCompleted])
	deleted, _ := model.ParseBool(row[model.ColumnDeleted])
	return model.Task{
		ID:           id,
		Title:        row[model.ColumnTitle],
		Link:         strings.TrimSpace(row[model.ColumnLink]),
		Completed:    completed,
		Date:         strings.TrimSpace(row[model.ColumnDate]),
		LastModified: model.ParseTimestamp(row[model.ColumnLastModified], s.loc),
		Deleted:      deleted,
	}
}

// visibleOn reports whether a row belongs on the list for day: it must be
// explicitly marked not deleted and carry exactly that date.
func visibleOn(row sheet.Row, day string) bool {
	deleted, ok := model.ParseBool(row[model.ColumnDeleted])
	if !ok || deleted {
		return false
	}
	return strings.TrimSpace(row[model.ColumnDate]) == day
}

func maxID(rows []sheet.Row) int {
	highest := 0
	for _, row := range rows {
		if id, ok := model.ParseID(row[model.ColumnID]); ok && id > highest {
			highest = id
		}
	}
	return highest
}

// rowValues places the fields of task at the positions the header gives them.
func rowValues(header []string, task model.Task) ([]string, error) {
	fields := map[string]string{
		model.ColumnID:           strconv.Itoa(task.ID),
		model.ColumnTitle:        task.Title,
		model.ColumnLink:         task.Link,
		model.ColumnCompleted:    model.FormatBool(task.Completed),
		model.ColumnDate:         task.Date,
		model.ColumnLastModified: model.FormatTimestamp(task.LastModified),
		model.ColumnDeleted:      model.FormatBool(task.Deleted),
	}

	width := 0
	for _, name := range model.Columns {
		col, err := columnIndex(header, name)
		if err != nil {
			return nil, err
		}
		if col > width {
			width = col
		}
	}

	values := make([]string, width)
	for i, name := range header {
		if i >= width {
			break
		}
		values[i] = fields[name]
	}
	return values, nil
}

func columnIndex(header []string, name string) (int, error) {
	col, ok := sheet.ColumnIndex(header, name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return col, nil
}
