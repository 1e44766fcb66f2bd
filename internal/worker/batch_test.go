package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/bookgraph/internal/model"
)

type mockAnalyzer struct {
	failIDs map[string]bool
}

func (m *mockAnalyzer) AnalyzeBook(ctx context.Context, id string) (*model.Graph, error) {
	time.Sleep(5 * time.Millisecond)
	if m.failIDs[id] {
		return nil, errors.New("analysis failed")
	}
	return &model.Graph{
		Nodes: []model.Node{{ID: "romeo", Name: "romeo", Value: 1}},
		Links: []model.Link{},
	}, nil
}

func writeIDs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessIDs(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2)

	ids := []string{"1513", "1342", "84", "11"}
	results := processor.ProcessIDs(context.Background(), ids)

	if len(results) != len(ids) {
		t.Fatalf("expected %d results, got %d", len(ids), len(results))
	}

	for i, res := range results {
		if res.ID != ids[i] {
			t.Errorf("result %d: expected id %s, got %s", i, ids[i], res.ID)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.ID, res.Error)
		}
		if res.Graph == nil {
			t.Errorf("expected graph for %s", res.ID)
		}
	}
}

func TestBatchProcessor_ProcessIDs_PartialFailure(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{failIDs: map[string]bool{"84": true}}, 3)

	results := processor.ProcessIDs(context.Background(), []string{"1513", "84", "11"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[1].GetError() == nil {
		t.Error("expected error for id 84")
	}
	if results[1].Graph != nil {
		t.Error("expected nil graph on error")
	}
	if results[0].GetError() != nil || results[2].GetError() != nil {
		t.Error("failure of one book must not affect the others")
	}
}

func TestBatchProcessor_ProcessIDs_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2)

	results := processor.ProcessIDs(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadIDsFromFile(t *testing.T) {
	path := writeIDs(t, "1513\n# Romeo and Juliet above\n1342\n   \n84   \n1513\n")

	ids, err := ReadIDsFromFile(path)
	if err != nil {
		t.Fatalf("ReadIDsFromFile failed: %v", err)
	}

	expected := []string{"1513", "1342", "84"}
	if len(ids) != len(expected) {
		t.Fatalf("expected %d ids, got %d: %v", len(expected), len(ids), ids)
	}
	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("expected id %s at index %d, got %s", expected[i], i, id)
		}
	}
}

func TestReadIDsFromFile_NonExistent(t *testing.T) {
	if _, err := ReadIDsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeIDs(t, "1513\n1342\n# comment\n\n84\n")
	processor := NewBatchProcessor(&mockAnalyzer{}, 2)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	path := writeIDs(t, "")
	processor := NewBatchProcessor(&mockAnalyzer{}, 2)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}
