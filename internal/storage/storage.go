package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	// DefaultMaxFileSize максимальный размер файла чека по умолчанию
	DefaultMaxFileSize = 10 << 20
	// FilesRoute префикс, под которым файлы раздаются по HTTP
	FilesRoute = "/files"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// allowedTypes форматы, принимаемые как чек об оплате
var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"application/pdf",
}

// FileStore хранилище загруженных файлов
type FileStore interface {
	// Save сохраняет содержимое и возвращает ссылку на файл
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// LocalFileStore хранит файлы на локальном диске
type LocalFileStore struct {
	dir           string
	publicBaseURL string
	maxSize       int64
	log           *logger.Logger
	now           func() time.Time
}

// NewLocalFileStore создает каталог dir, если его нет
func NewLocalFileStore(dir, publicBaseURL string, maxSize int64, log *logger.Logger) (*LocalFileStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalFileStore{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxSize:       maxSize,
		log:           log,
		now:           time.Now,
	}, nil
}

// Dir возвращает каталог с файлами
func (s *LocalFileStore) Dir() string {
	return s.dir
}

// Save проверяет размер и тип содержимого и записывает файл на диск.
// Тип определяется по содержимому, расширение исходного имени игнорируется.
func (s *LocalFileStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyFile
	}
	if n > s.maxSize {
		return "", fmt.Errorf("%w of %d MB", ErrFileTooLarge, s.maxSize/(1<<20))
	}

	mtype := mimetype.Detect(buf.Bytes())
	if !isAllowed(mtype) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	filename := fmt.Sprintf("%s-%s%s", s.now().UTC().Format("20060102"), uuid.New().String(), mtype.Extension())
	path := filepath.Join(s.dir, filename)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.log.Debugw("File stored", "original", name, "file", filename, "mime", mtype.String(), "bytes", n)
	return s.publicBaseURL + FilesRoute + "/" + filename, nil
}

func isAllowed(mtype *mimetype.MIME) bool {
	for _, allowed := range allowedTypes {
		if mtype.Is(allowed) {
			return true
		}
	}
	return false
}
