package dashboard

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"taskmanager/internal/model"

	"github.com/google/uuid"
)

var (
	// ErrInvalidTask is returned when a required field is missing or malformed.
	ErrInvalidTask = errors.New("title, description, due date and priority are required")

	// ErrTaskNotFound is returned when the target task is not on the board.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAddInFlight is returned when an add is attempted while a
	// previous add is still waiting on the store.
	ErrAddInFlight = errors.New("a task is already being added")

	// ErrEditInFlight is returned when an edit is attempted while a
	// previous edit is still waiting on the store.
	ErrEditInFlight = errors.New("another edit is still being saved")
)

// TaskStore is the durable side of the board. The board mirrors every
// mutation through it and can rebuild itself from it at any time.
type TaskStore interface {
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Task, error)
	Create(ctx context.Context, task *model.Task) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Suggester produces breakdown text for a task description. It never
// fails; faults are absorbed into fallback text.
type Suggester interface {
	Breakdown(ctx context.Context, description string) string
}

// genState tracks the enrichment lifecycle of a single task.
type genState int

const (
	genIdle genState = iota
	genGenerating
	genSettled
)

// entry is one task on the board plus its enrichment bookkeeping.
type entry struct {
	task  model.Task
	seq   int // insertion order, breaks ties between equal due dates
	state genState

	// gen is bumped every time a new enrichment run is requested for
	// this task; a run whose gen is no longer current merges nothing.
	gen uint64

	// genMu serializes enrichment runs for this task. It survives
	// refreshes so an outstanding run still blocks the next one.
	genMu *sync.Mutex
}

// Board holds the in-memory task list of one signed-in user and keeps
// it mirrored against the store. Tasks are kept in a map keyed by id;
// presentation order is a projection recomputed by Tasks().
type Board struct {
	owner uuid.UUID
	store TaskStore
	ai    Suggester

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	nextSeq int
	adding  bool
	editing bool
}

func NewBoard(owner uuid.UUID, store TaskStore, ai Suggester) *Board {
	return &Board{
		owner:   owner,
		store:   store,
		ai:      ai,
		entries: make(map[uuid.UUID]*entry),
	}
}

// Refresh replaces the board wholesale with the owner's tasks from the
// store, ordered by due date. A failed read keeps the previous state;
// the caller is never handed an error.
func (b *Board) Refresh(ctx context.Context) {
	tasks, err := b.store.ListByOwner(ctx, b.owner)
	if err != nil {
		log.Printf("Error fetching tasks: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fresh := make(map[uuid.UUID]*entry, len(tasks))
	for i := range tasks {
		t := tasks[i]
		t.IsExpanded = false
		e := &entry{task: t, seq: i, genMu: &sync.Mutex{}}
		if old, ok := b.entries[t.ID]; ok {
			// Keep the enrichment bookkeeping so an outstanding run
			// still serializes and can still merge its result.
			e.genMu = old.genMu
			e.gen = old.gen
			e.state = old.state
		}
		if t.IsGenerating && e.state == genIdle {
			e.state = genGenerating
		}
		fresh[t.ID] = e
	}
	b.entries = fresh
	b.nextSeq = len(tasks)
}

// AddInput carries the four user-supplied fields of a new task.
type AddInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    model.Priority
}

// Add inserts the task in the store, merges it into the board in
// date-sorted position and kicks off enrichment in the background.
// The returned task is already visible on the board; its suggestions
// arrive when the enrichment settles.
func (b *Board) Add(ctx context.Context, in AddInput) (*model.Task, error) {
	if in.Title == "" || in.Description == "" || in.DueDate.IsZero() || !in.Priority.Valid() {
		return nil, ErrInvalidTask
	}

	b.mu.Lock()
	if b.adding {
		b.mu.Unlock()
		return nil, ErrAddInFlight
	}
	b.adding = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.adding = false
		b.mu.Unlock()
	}()

	task := &model.Task{
		UserID:       b.owner,
		Title:        in.Title,
		Description:  in.Description,
		DueDate:      in.DueDate,
		Priority:     in.Priority,
		IsGenerating: true,
	}
	if err := b.store.Create(ctx, task); err != nil {
		// No local mutation: a task the store rejected must not appear.
		log.Printf("Error adding task: %v", err)
		return nil, err
	}

	b.mu.Lock()
	e := &entry{task: *task, seq: b.nextSeq, state: genGenerating, genMu: &sync.Mutex{}}
	b.nextSeq++
	b.entries[task.ID] = e
	gen := e.gen
	b.mu.Unlock()

	go b.enrich(task.ID, task.Description, gen)

	out := *task
	return &out, nil
}

// Edit persists a new title and description, then re-runs enrichment
// against the new description. A failed store write means the edit did
// not take effect: local state is untouched and no enrichment starts.
func (b *Board) Edit(ctx context.Context, id uuid.UUID, title, description string) error {
	if title == "" || description == "" {
		return ErrInvalidTask
	}

	b.mu.Lock()
	if _, ok := b.entries[id]; !ok {
		b.mu.Unlock()
		return ErrTaskNotFound
	}
	if b.editing {
		b.mu.Unlock()
		return ErrEditInFlight
	}
	b.editing = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.editing = false
		b.mu.Unlock()
	}()

	err := b.store.UpdateFields(ctx, id, map[string]interface{}{
		"title":         title,
		"description":   description,
		"is_generating": true,
	})
	if err != nil {
		log.Printf("Error updating task %s: %v", id, err)
		return err
	}

	b.mu.Lock()
	e, ok := b.entries[id]
	if !ok {
		// Deleted while the store write was in flight.
		b.mu.Unlock()
		return ErrTaskNotFound
	}
	e.task.Title = title
	e.task.Description = description
	e.task.IsGenerating = true
	e.state = genGenerating
	e.gen++ // supersedes any outstanding run for this task
	gen := e.gen
	b.mu.Unlock()

	go b.enrich(id, description, gen)
	return nil
}

// Delete removes the task from the store first; only a confirmed
// delete removes it from the board.
func (b *Board) Delete(ctx context.Context, id uuid.UUID) error {
	b.mu.Lock()
	_, ok := b.entries[id]
	b.mu.Unlock()
	if !ok {
		log.Printf("Error deleting task %s: not on board", id)
		return ErrTaskNotFound
	}

	if err := b.store.Delete(ctx, id); err != nil {
		log.Printf("Error deleting task %s: %v", id, err)
		return err
	}

	b.mu.Lock()
	delete(b.entries, id)
	b.mu.Unlock()
	return nil
}

// ToggleExpansion flips the expanded flag of one task. Board state
// only; the store is never involved.
func (b *Board) ToggleExpansion(id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok {
		return ErrTaskNotFound
	}
	e.task.IsExpanded = !e.task.IsExpanded
	return nil
}

// Tasks returns a snapshot of the board ordered by due date ascending.
// Tasks sharing a due date keep their insertion order.
func (b *Board) Tasks() []model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	ordered := make([]*entry, 0, len(b.entries))
	for _, e := range b.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].task.DueDate.Equal(ordered[j].task.DueDate) {
			return ordered[i].seq < ordered[j].seq
		}
		return ordered[i].task.DueDate.Before(ordered[j].task.DueDate)
	})

	out := make([]model.Task, len(ordered))
	for i, e := range ordered {
		out[i] = e.task
	}
	return out
}

// enrich asks the suggester for a breakdown and merges the result into
// the store and the board. Runs for the same task are serialized by the
// entry's own mutex; a run that was superseded by a newer edit, or
// whose task was deleted meanwhile, merges nothing.
func (b *Board) enrich(id uuid.UUID, description string, gen uint64) {
	b.mu.Lock()
	e, ok := b.entries[id]
	if !ok || e.gen != gen {
		b.mu.Unlock()
		return
	}
	genMu := e.genMu
	b.mu.Unlock()

	genMu.Lock()
	defer genMu.Unlock()

	// Re-check after acquiring: a newer run may have been requested
	// while this one waited its turn.
	b.mu.Lock()
	e, ok = b.entries[id]
	if !ok || e.gen != gen {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	suggestions := b.ai.Breakdown(context.Background(), description)

	// A run superseded during generation writes nothing back.
	b.mu.Lock()
	e, ok = b.entries[id]
	if !ok || e.gen != gen {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	storeErr := b.store.UpdateFields(context.Background(), id, map[string]interface{}{
		"ai_suggestions": suggestions,
		"is_generating":  false,
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok = b.entries[id]
	if !ok || e.gen != gen {
		// Deleted or superseded while generating.
		return
	}
	if storeErr != nil {
		// The result did not persist, but the spinner must still clear.
		log.Printf("Error saving AI suggestions for task %s: %v", id, storeErr)
		e.task.IsGenerating = false
		e.state = genSettled
		return
	}
	e.task.AISuggestions = suggestions
	e.task.IsGenerating = false
	e.state = genSettled
}
