package ingest

import (
	"os"
	"strings"
	"sync"
)

// readChunk is the size of each read issued against the file source, per
// §4.4's "drain the device with 32-byte reads" rule.
const readChunk = 32

// fileSource owns the optional local character-device peer (e.g.
// /dev/urandom on a box that wants to treat it as an additional entropy
// feed rather than a sole source). A file open error leaves the source
// permanently inactive for that configuration; it does not affect the TCP
// source or the generator.
type fileSource struct {
	sink     Sink
	cur      cursor
	sourceID int

	mu   sync.Mutex
	file *os.File
	gen  uint64 // incremented on every (re)configure, to let a stale readLoop notice it was superseded
}

func newFileSource(sink Sink) *fileSource {
	return &fileSource{sink: sink, sourceID: SourceFile}
}

// Configure opens path for unbuffered reading and starts draining it. It is
// idempotent; an empty or whitespace-only path is a no-op, matching
// set_file_peer's contract.
func (f *fileSource) Configure(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		log.Errorf("file source: open %q: %v", path, err)
		return
	}

	f.mu.Lock()
	if f.file != nil {
		f.file.Close()
	}
	f.file = file
	f.gen++
	myGen := f.gen
	f.mu.Unlock()

	log.Infof("file source: reading from %q", path)
	go f.readLoop(file, myGen)
}

// readLoop drains file for as long as it stays open, one activation at a
// time: each activation advances the round-robin cursor once and deposits
// every chunk drained during that burst into the same pool. See
// drainBurst.
func (f *fileSource) readLoop(file *os.File, myGen uint64) {
	for drainBurst(file, &f.cur, f.sink, f.sourceID) {
	}

	f.mu.Lock()
	superseded := f.gen != myGen
	f.mu.Unlock()
	if !superseded {
		log.Debugf("file source: read loop stopping")
	}
}

// Close stops the file source and releases its handle.
func (f *fileSource) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}
	f.gen++
}
