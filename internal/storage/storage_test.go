package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newStore(t *testing.T, maxSize int64) *LocalFileStore {
	t.Helper()
	store, err := NewLocalFileStore(t.TempDir(), "http://localhost:8080/", maxSize, logger.NewNop())
	if err != nil {
		t.Fatalf("NewLocalFileStore: %v", err)
	}
	return store
}

func TestSaveDetectsTypeByContent(t *testing.T) {
	store := newStore(t, 1024)

	ref, err := store.Save(context.Background(), "comprovante.txt", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(ref, "http://localhost:8080/files/") || !strings.HasSuffix(ref, ".png") {
		t.Errorf("unexpected reference %q", ref)
	}

	stored := filepath.Join(store.Dir(), filepath.Base(ref))
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Error("stored content differs from upload")
	}
}

func TestSaveAcceptsPDF(t *testing.T) {
	store := newStore(t, 1024)

	ref, err := store.Save(context.Background(), "boleto.pdf", strings.NewReader("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(ref, ".pdf") {
		t.Errorf("unexpected reference %q", ref)
	}
}

func TestSaveRejections(t *testing.T) {
	store := newStore(t, 32)

	tests := []struct {
		name    string
		content []byte
		want    error
	}{
		{"empty", nil, ErrEmptyFile},
		{"too large", append(append([]byte{}, pngHeader...), make([]byte, 64)...), ErrFileTooLarge},
		{"plain text", []byte("just some text"), ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(context.Background(), "file", bytes.NewReader(tt.content))
			if !errors.Is(err, tt.want) {
				t.Errorf("Save() error = %v, want %v", err, tt.want)
			}
		})
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected uploads left %d files", len(entries))
	}
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	store := newStore(t, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Save(ctx, "file.png", bytes.NewReader(pngHeader)); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
}
