package jinn

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
)

const defaultMaxCacheSize = 128 * 1024 * 1024 // 128 MiB
const defaultBlockSize = 256

// Database is the embedded document store facade (C8). All public methods
// serialize on mu: this is a single-owner engine, not a concurrent one —
// each public call performs its block I/O serially, and two public calls
// never overlap. No operation takes a concurrency option.
type Database struct {
	mu sync.Mutex

	filename    string
	removeTmp   bool
	cleanupOnce sync.Once
	cleanupStop chan struct{}
	file        *blockFile

	blockSize  uint64
	blocks     uint64
	compressed bool

	index      *recordIndex
	cache      *cache
	blockHoles *holeSet
	cacheHoles *holeSet

	logger *log.Logger
	closed bool
}

// Options configure Open.
type Options struct {
	CopyOf       string
	Compressed   bool
	MaxCacheSize uint64
	Logger       *log.Logger
}

// Option mutates Options; functional-options idiom matching the teacher's
// Config-struct style (database.Config) generalized to a chainable form.
type Option func(*Options)

func WithCopyOf(path string) Option        { return func(o *Options) { o.CopyOf = path } }
func WithCompressed(v bool) Option         { return func(o *Options) { o.Compressed = v } }
func WithMaxCacheSize(n uint64) Option     { return func(o *Options) { o.MaxCacheSize = n } }
func WithLogger(l *log.Logger) Option      { return func(o *Options) { o.Logger = l } }

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// Open opens (creating if needed) fileName and loads it. An empty fileName
// obtains a fresh, process-unique temp path that is removed on Close. That
// path's cleanup is also registered here, at open time rather than close
// time (spec §9): a SIGINT/SIGTERM handler and a runtime finalizer both
// stand ready to remove the temp file even if Close is never reached —
// abnormal termination or a dropped Database value without an explicit
// Close.
func Open(fileName string, opts ...Option) (*Database, error) {
	o := &Options{MaxCacheSize: defaultMaxCacheSize}
	for _, apply := range opts {
		apply(o)
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}

	removeTmp := false
	if fileName == "" {
		f, err := os.CreateTemp("", "jinn-*.db")
		if err != nil {
			return nil, fmt.Errorf("create temp file: %w", err)
		}
		fileName = f.Name()
		f.Close()
		removeTmp = true
	}

	if o.CopyOf != "" {
		if err := copyFile(o.CopyOf, fileName); err != nil {
			return nil, fmt.Errorf("open as copy of %s: %w", o.CopyOf, err)
		}
	}

	bf, err := openBlockFile(fileName)
	if err != nil {
		return nil, err
	}

	db := &Database{
		filename:   fileName,
		removeTmp:  removeTmp,
		file:       bf,
		blockSize:  defaultBlockSize,
		compressed: o.Compressed,
		index:      newRecordIndex(),
		cache:      newCache(o.MaxCacheSize),
		blockHoles: newHoleSet(),
		cacheHoles: newHoleSet(),
		logger:     o.Logger,
	}

	if err := db.load(); err != nil {
		bf.close()
		return nil, err
	}

	if removeTmp {
		db.cleanupStop = registerTempCleanup(db)
		runtime.SetFinalizer(db, func(d *Database) { d.removeTempFile() })
	}

	return db, nil
}

// registerTempCleanup arms a SIGINT/SIGTERM handler that removes db's
// backing file before letting the signal through to its default behavior,
// mirroring the signal.Notify shutdown idiom the teacher's own
// cmd/inceptiondb/main.go uses for its http.Server. Returns a channel that
// Close closes to disarm the handler once cleanup has already happened
// through the normal path.
func registerTempCleanup(db *Database) chan struct{} {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			signal.Stop(sigCh)
			db.removeTempFile()
			if p, err := os.FindProcess(os.Getpid()); err == nil {
				p.Signal(sig)
			}
		case <-stop:
			signal.Stop(sigCh)
		}
	}()

	return stop
}

// removeTempFile deletes db's backing file at most once, safe to call from
// Close, the signal handler, and the finalizer without racing each other.
func (db *Database) removeTempFile() {
	db.cleanupOnce.Do(func() {
		os.Remove(db.filename)
	})
}

// load reads the header, if any, then populates the index and cache from
// the block array up to cache capacity (spec §4.8).
func (db *Database) load() error {
	h, err := readHeader(db.file.f)
	if err != nil {
		db.logger.Printf("jinn: no valid header in %s, initializing: %s", db.filename, err)
		db.blockSize = defaultBlockSize
		db.blocks = 0
		return writeHeader(db.file.f, &header{
			Version:    headerVersion,
			Compressed: db.compressed,
			BlockSize:  db.blockSize,
			Blocks:     db.blocks,
		})
	}

	db.blockSize = h.BlockSize
	db.blocks = h.Blocks
	db.compressed = h.Compressed

	db.logger.Printf("jinn: loading %s: %d blocks, %d bytes/block", db.filename, db.blocks, db.blockSize)

	buf := make([]byte, db.blockSize)
	for i := uint64(0); i < db.blocks; i++ {
		if err := db.file.readBlock(i, db.blockSize, buf); err != nil {
			return err
		}
		rec, err := decodeBlock(buf, db.compressed)
		if err != nil {
			return err
		}
		id, ok := getID(rec)
		if !ok {
			return fmt.Errorf("%w: block %d has no _id", ErrCorruptBlock, i)
		}

		loc := itemLocation{block: i, cacheIndex: -1}
		if db.cache.hasSpareCapacity(db.blockSize) {
			loc.cacheIndex = db.cache.append(rec)
			loc.cached = true
		}
		db.index.set(id, loc)
	}

	return nil
}

// Close persists the header and releases the file descriptor.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	err := writeHeader(db.file.f, &header{
		Version:    headerVersion,
		Compressed: db.compressed,
		BlockSize:  db.blockSize,
		Blocks:     db.blocks,
	})
	closeErr := db.file.close()
	if err == nil {
		err = closeErr
	}

	if db.removeTmp {
		close(db.cleanupStop)
		runtime.SetFinalizer(db, nil)
		db.removeTempFile()
	}

	return err
}

// Drop closes the database and deletes its backing file. A no-filename
// database already removed its own file on Close, so a missing file here
// isn't an error.
func (db *Database) Drop() error {
	filename := db.filename
	if err := db.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Stats is a cheap snapshot of engine state, used by the jinnctl
// inspection tool.
type Stats struct {
	Blocks     uint64
	BlockSize  uint64
	Records    int
	CacheLen   int
	Compressed bool
}

func (db *Database) Stats() Stats {
	db.mu.Lock()
	defer db.mu.Unlock()
	return Stats{
		Blocks:     db.blocks,
		BlockSize:  db.blockSize,
		Records:    db.index.len(),
		CacheLen:   db.cache.len(),
		Compressed: db.compressed,
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
