package attacklog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"edgeguard/guard"
	"edgeguard/metrics"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
)

// Journal receives every recorded attack entry, in addition to the key-value store.
type Journal interface {
	Write(entry guard.AttackLogEntry)
}

// File is an append-only journal file.
type File interface {
	Append(content []byte) error
	Close() error
}

// FileSystem creates journal directories and opens journal files.
type FileSystem interface {
	MkDir(dir string) error
	Open(name string) (File, error)
}

// JournalBuffer is the number of lines a FileJournal queues before it starts dropping entries.
const JournalBuffer = 1024

// FileJournal appends attack entries as JSON lines to a single file.
// Lines are queued to one writer goroutine so concurrent requests never interleave
// and never wait on the disk. Entries that find the queue full are dropped.
type FileJournal struct {
	logger  zerolog.Logger
	file    File
	metrics *metrics.Recorder

	mu     sync.RWMutex
	closed bool
	lines  chan []byte
	done   chan struct{}
}

// NewFileJournal creates dir if needed and opens dir/name for appending.
func NewFileJournal(logger zerolog.Logger, fs FileSystem, dir string, name string, recorder *metrics.Recorder) (j *FileJournal, err error) {
	if err = fs.MkDir(dir); err != nil {
		err = fmt.Errorf("failed to create attack journal directory %v: %w", dir, err)
		return
	}

	path := filepath.Join(dir, name)
	f, err := fs.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open attack journal %v: %w", path, err)
		return
	}

	j = &FileJournal{
		logger:  logger,
		file:    f,
		metrics: recorder,
		lines:   make(chan []byte, JournalBuffer),
		done:    make(chan struct{}),
	}

	go j.writeLines()

	logger.Info().Str("file", path).Msg("Attack journal opened")
	return
}

func (j *FileJournal) writeLines() {
	defer close(j.done)
	for line := range j.lines {
		if err := j.file.Append(line); err != nil {
			j.logger.Error().Err(err).Msg("Failed to append to attack journal")
			j.metrics.AttackLogFailure()
		}
	}
}

// Write queues entry for the writer goroutine without waiting for the disk.
func (j *FileJournal) Write(entry guard.AttackLogEntry) {
	bb, err := sonic.Marshal(entry)
	if err != nil {
		j.logger.Error().Err(err).Msg("Error while marshaling attack journal entry")
		return
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.logger.Error().Str("id", entry.ID).Msg("Attack journal entry written after close")
		return
	}

	select {
	case j.lines <- append(bb, '\n'):
	default:
		j.logger.Warn().Str("id", entry.ID).Msg("Attack journal queue full, entry dropped")
		j.metrics.AttackJournalDrop()
	}
}

// Close flushes the queued lines and closes the file. Later calls to Write are logged and ignored.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.lines)
	j.mu.Unlock()

	<-j.done
	return j.file.Close()
}

// OSFileSystem is the FileSystem of the local disk.
type OSFileSystem struct{}

// MkDir creates dir along with any necessary parents.
func (OSFileSystem) MkDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// Open opens name for appending, creating it if needed.
func (OSFileSystem) Open(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

type osFile struct {
	f *os.File
}

func (o *osFile) Append(content []byte) error {
	_, err := o.f.Write(content)
	return err
}

func (o *osFile) Close() error {
	return o.f.Close()
}
