package protocol

import (
	"errors"
	"io"
	"os"
	"strings"

	"lockkv/internal/logger"
	"lockkv/internal/tree"
)

// Replies sent back to clients
const (
	ReplyNotFound      = "not found"
	ReplyAdded         = "added"
	ReplyExists        = "already in database"
	ReplyRemoved       = "removed"
	ReplyNotInDatabase = "not in database"
	ReplyFileProcessed = "file processed"
	ReplyBadFile       = "bad file name"
	ReplyIllFormed     = "ill-formed command"
)

// Command letters
const (
	CmdQuery  = "q"
	CmdAdd    = "a"
	CmdDelete = "d"
	CmdFile   = "f"
	// CmdInvalid labels lines that do not name a command
	CmdInvalid = "invalid"
)

// Status classifies a reply
type Status int

const (
	// StatusOK means the command did what it asked
	StatusOK Status = iota
	// StatusMiss means a well-formed command found nothing to act on
	StatusMiss
	// StatusInvalid means the line was rejected
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMiss:
		return "miss"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result is the outcome of one command line
type Result struct {
	Command string
	Reply   string
	Status  Status
}

// Store is the map the interpreter runs commands against
type Store interface {
	Lookup(key string) (string, error)
	Insert(key, value string) error
	Remove(key string) error
}

// Ensure tree.Tree implements Store
var _ Store = (*tree.Tree)(nil)

// Config bounds the interpreter
type Config struct {
	MaxTokenLen   int // longest key/value/path token (0 = tree.MaxLen)
	MaxLineLength int // longest batch file line (0 = 1024)
	MaxBatchDepth int // nesting limit for f commands (0 = 8)
}

// DefaultConfig returns the default limits
func DefaultConfig() Config {
	return Config{
		MaxTokenLen:   tree.MaxLen,
		MaxLineLength: 1024,
		MaxBatchDepth: 8,
	}
}

// Interpreter parses wire command lines and applies them to a Store
type Interpreter struct {
	store Store
	cfg   Config
}

// New creates an interpreter over store
func New(store Store, cfg Config) *Interpreter {
	if cfg.MaxTokenLen <= 0 {
		cfg.MaxTokenLen = tree.MaxLen
	}
	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = 1024
	}
	if cfg.MaxBatchDepth <= 0 {
		cfg.MaxBatchDepth = 8
	}
	return &Interpreter{store: store, cfg: cfg}
}

// Execute runs one command line and returns the reply for the client.
//
// A line is a one-letter command followed by whitespace separated tokens:
//
//	q <key>
//	a <key> <value>
//	d <key>
//	f <path>
//
// Extra tokens are ignored. Anything else is answered with ReplyIllFormed.
func (i *Interpreter) Execute(line string) Result {
	return i.execute(line, 0)
}

func illFormed(cmd string) Result {
	return Result{Command: cmd, Reply: ReplyIllFormed, Status: StatusInvalid}
}

func (i *Interpreter) execute(line string, depth int) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields[0]) != 1 {
		return illFormed(CmdInvalid)
	}

	cmd, args := fields[0], fields[1:]
	need := 1
	switch cmd {
	case CmdQuery, CmdDelete, CmdFile:
	case CmdAdd:
		need = 2
	default:
		return illFormed(CmdInvalid)
	}
	if len(args) < need {
		return illFormed(cmd)
	}
	for _, tok := range args[:need] {
		if len(tok) > i.cfg.MaxTokenLen {
			return illFormed(cmd)
		}
	}

	switch cmd {
	case CmdQuery:
		return i.query(args[0])
	case CmdAdd:
		return i.add(args[0], args[1])
	case CmdDelete:
		return i.remove(args[0])
	default:
		return i.batch(args[0], depth)
	}
}

func (i *Interpreter) query(key string) Result {
	value, err := i.store.Lookup(key)
	switch {
	case err == nil && value != "":
		return Result{Command: CmdQuery, Reply: value, Status: StatusOK}
	case err == nil, errors.Is(err, tree.ErrNotFound):
		return Result{Command: CmdQuery, Reply: ReplyNotFound, Status: StatusMiss}
	default:
		return illFormed(CmdQuery)
	}
}

func (i *Interpreter) add(key, value string) Result {
	err := i.store.Insert(key, value)
	switch {
	case err == nil:
		return Result{Command: CmdAdd, Reply: ReplyAdded, Status: StatusOK}
	case errors.Is(err, tree.ErrExists):
		return Result{Command: CmdAdd, Reply: ReplyExists, Status: StatusMiss}
	default:
		return illFormed(CmdAdd)
	}
}

func (i *Interpreter) remove(key string) Result {
	err := i.store.Remove(key)
	switch {
	case err == nil:
		return Result{Command: CmdDelete, Reply: ReplyRemoved, Status: StatusOK}
	case errors.Is(err, tree.ErrNotFound):
		return Result{Command: CmdDelete, Reply: ReplyNotInDatabase, Status: StatusMiss}
	default:
		return illFormed(CmdDelete)
	}
}

// batch runs every line of path silently. Replies of the individual lines
// are discarded.
func (i *Interpreter) batch(path string, depth int) Result {
	if depth >= i.cfg.MaxBatchDepth {
		logger.Warn("protocol", "batch file %s nested deeper than %d, skipped", path, i.cfg.MaxBatchDepth)
		return illFormed(CmdFile)
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Debug("protocol", "cannot open batch file %s: %v", path, err)
		return Result{Command: CmdFile, Reply: ReplyBadFile, Status: StatusMiss}
	}
	defer f.Close()

	lr := NewLineReader(f, i.cfg.MaxLineLength)
	for n := 1; ; n++ {
		line, err := lr.ReadLine()
		switch {
		case err == nil:
			i.execute(line, depth+1)
		case errors.Is(err, ErrLineTooLong):
			logger.Debug("protocol", "batch file %s line %d too long, skipped", path, n)
		case errors.Is(err, io.EOF):
			return Result{Command: CmdFile, Reply: ReplyFileProcessed, Status: StatusOK}
		default:
			logger.Warn("protocol", "batch file %s stopped at line %d: %v", path, n, err)
			return Result{Command: CmdFile, Reply: ReplyFileProcessed, Status: StatusOK}
		}
	}
}
