package agentstate

import (
	"testing"

	"github.com/ShayCichocki/foreman/pkg/models"
)

func TestState_CompleteTodo_IdempotentOnAlreadyCompleted(t *testing.T) {
	s := New()
	id, _ := s.AddTodo("write tests")

	if res := s.CompleteTodo(id); !res.OK {
		t.Fatalf("unexpected error: %+v", res)
	}
	if res := s.CompleteTodo(id); !res.OK {
		t.Fatalf("completing an already-completed todo should be idempotent, got %+v", res)
	}
}

func TestState_DeleteTodo_UnknownIDRepeatedSameErrorKind(t *testing.T) {
	s := New()

	first := s.DeleteTodo("nope")
	second := s.DeleteTodo("nope")

	if first.OK || second.OK {
		t.Fatalf("expected both deletes of an unknown id to fail")
	}
	if first.ErrorKind != models.ErrorKindUnknownTodo || second.ErrorKind != models.ErrorKindUnknownTodo {
		t.Errorf("ErrorKind mismatch: first=%v second=%v", first.ErrorKind, second.ErrorKind)
	}
}

func TestState_DeleteTodo_RemovesItem(t *testing.T) {
	s := New()
	id, _ := s.AddTodo("x")

	if res := s.DeleteTodo(id); !res.OK {
		t.Fatalf("unexpected error: %+v", res)
	}
	if len(s.ViewAll()) != 0 {
		t.Errorf("expected todo list to be empty after delete")
	}
}

func TestState_Render_IncludesNotesAndTodos(t *testing.T) {
	s := New()
	s.AppendNote("investigated the bug")
	s.AddTodo("fix it")

	rendered := s.Render()
	if rendered == "" {
		t.Fatalf("expected non-empty render")
	}
}
