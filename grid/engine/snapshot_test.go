package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSnapshotRestore(t *testing.T) {
	editor, _ := newTestEditor(t)
	if _, err := editor.Drag(Position{X: 2, Y: 2}, Position{X: 2, Y: 7}); err != nil {
		t.Fatalf("Drag failed: %v", err)
	}
	if _, err := editor.SetConnections(Position{X: 0, Y: 4}, East); err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}

	snap := editor.Snapshot()
	if !snap.Initialized || snap.Width != 10 || snap.Height != 10 {
		t.Fatalf("Unexpected snapshot header %+v", snap)
	}
	if len(snap.Bridges) != editor.Grid().BridgeCount() {
		t.Errorf("Snapshot has %d bridges, grid has %d", len(snap.Bridges), editor.Grid().BridgeCount())
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Failed to marshal snapshot: %v", err)
	}
	var decoded GridSnapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal snapshot: %v", err)
	}

	restoredRenderer := NewMemoryRenderer()
	restored, err := NewEditor(DefaultGridConfig(), restoredRenderer)
	if err != nil {
		t.Fatalf("Failed to create editor: %v", err)
	}
	if err := restored.Restore(&decoded); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	g := restored.Grid()
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if got, want := connectionsAt(t, g, x, y), snap.Connections[y][x]; got != want {
				t.Errorf("Point (%d,%d) restored as %s, want %s", x, y, got, want)
			}
		}
	}
	if g.BridgeCount() != len(snap.Bridges) {
		t.Errorf("Restored %d bridges, want %d", g.BridgeCount(), len(snap.Bridges))
	}
	if restoredRenderer.Count() != snap.Pieces {
		t.Errorf("Restored %d pieces, want %d", restoredRenderer.Count(), snap.Pieces)
	}
	if !restored.DrainEvents().Empty() {
		t.Error("Restore should not leave queued events")
	}
	checkBridgeInvariant(t, g)
}

func TestRestoreUninitialized(t *testing.T) {
	editor, renderer := newTestEditor(t)
	editor.SetConnections(Position{X: 1, Y: 1}, North)

	if err := editor.Restore(&GridSnapshot{}); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if editor.Initialized() {
		t.Error("Restoring an empty snapshot should delete the grid")
	}
	if renderer.Count() != 0 {
		t.Errorf("Expected no pieces, got %d", renderer.Count())
	}
	if err := editor.Restore(nil); err == nil {
		t.Error("Expected error for nil snapshot")
	}
}

func TestRestoreRejectsMismatchedDimensions(t *testing.T) {
	tests := []struct {
		name   string
		mangle func(snap *GridSnapshot)
	}{
		{"missing rows", func(snap *GridSnapshot) { snap.Connections = snap.Connections[:4] }},
		{"short row", func(snap *GridSnapshot) { snap.Connections[2] = snap.Connections[2][:7] }},
		{"spacing mismatch", func(snap *GridSnapshot) { snap.Spacing = Vec2{X: 9, Y: 9} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor, renderer := newTestEditor(t)
			if _, err := editor.Drag(Position{X: 1, Y: 1}, Position{X: 4, Y: 1}); err != nil {
				t.Fatalf("Drag failed: %v", err)
			}
			before := editor.Snapshot()
			pieces := renderer.Count()

			snap := editor.Snapshot()
			tt.mangle(snap)
			if err := editor.Restore(snap); err == nil {
				t.Fatal("Expected error for a malformed snapshot")
			}

			after := editor.Snapshot()
			if !after.Initialized || after.Width != before.Width || after.Height != before.Height {
				t.Fatalf("Grid should be kept, got %dx%d (initialized %v)", after.Width, after.Height, after.Initialized)
			}
			if after.Render() != before.Render() {
				t.Errorf("Connections changed after a rejected restore:\n%s", after.Render())
			}
			if editor.Grid().BridgeCount() != 3 || renderer.Count() != pieces {
				t.Errorf("Expected 3 bridges and %d pieces, got %d and %d", pieces, editor.Grid().BridgeCount(), renderer.Count())
			}
		})
	}
}

func TestSnapshotRender(t *testing.T) {
	editor, err := NewEditor(DefaultGridConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to create editor: %v", err)
	}
	if got := editor.Snapshot().Render(); !strings.Contains(got, "not initialized") {
		t.Errorf("Unexpected render of an empty grid: %q", got)
	}

	if err := editor.InitFromConfig(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	editor.Drag(Position{X: 0, Y: 9}, Position{X: 2, Y: 9})

	lines := strings.Split(editor.Snapshot().Render(), "\n")
	if lines[0] != "+-+-+ . . . . . . ." {
		t.Errorf("Unexpected top row %q", lines[0])
	}
}
