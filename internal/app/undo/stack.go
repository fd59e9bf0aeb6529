// Package undo keeps the history of executed commands.
package undo

import (
	"sync"

	"github.com/osa030/cuebox/internal/app/actions"
)

// DefaultDepth is used when a non-positive depth is given.
const DefaultDepth = 100

// Stack is a bounded undo/redo history of commands.
type Stack struct {
	mu     sync.Mutex
	depth  int
	done   []actions.Command
	undone []actions.Command
}

// NewStack creates a stack keeping at most depth commands.
func NewStack(depth int) *Stack {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Stack{depth: depth}
}

// Push records an executed command and clears the redo branch.
// Commands that did not change anything are not recorded.
func (s *Stack) Push(cmd actions.Command) {
	if !cmd.Changed() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = append(s.done, cmd)
	if len(s.done) > s.depth {
		s.done = s.done[len(s.done)-s.depth:]
	}
	s.undone = nil
}

// Undo pops the most recent command. The caller reverts it.
func (s *Stack) Undo() (actions.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.done) == 0 {
		return actions.Command{}, false
	}
	cmd := s.done[len(s.done)-1]
	s.done = s.done[:len(s.done)-1]
	s.undone = append(s.undone, cmd)
	return cmd, true
}

// Redo pops the most recently undone command. The caller applies it again.
func (s *Stack) Redo() (actions.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undone) == 0 {
		return actions.Command{}, false
	}
	cmd := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	s.done = append(s.done, cmd)
	return cmd, true
}

// PeekUndo returns the command Undo would pop, leaving the history unchanged.
func (s *Stack) PeekUndo() (actions.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return top(s.done)
}

// PeekRedo returns the command Redo would pop, leaving the history unchanged.
func (s *Stack) PeekRedo() (actions.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return top(s.undone)
}

func top(cmds []actions.Command) (actions.Command, bool) {
	if len(cmds) == 0 {
		return actions.Command{}, false
	}
	return cmds[len(cmds)-1], true
}

// Len returns the number of commands that can be undone and redone.
func (s *Stack) Len() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.done), len(s.undone)
}

// Clear drops the whole history.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = nil
	s.undone = nil
}
