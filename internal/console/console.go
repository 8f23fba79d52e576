package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"lockkv/internal/logger"
	"lockkv/internal/registry"
)

// Server is the part of the server the console drives
type Server interface {
	Pause()
	Resume()
	Dump(path string, fallback io.Writer) error
	Clients() []registry.Info
}

// Console reads operator commands, one per line:
//
//	p [path]  dump the tree to path, or to the output when path is blank
//	s         pause all clients
//	g         release paused clients
//	l         list connected clients
//
// Anything else is reported as an ill-formed command.
type Console struct {
	srv  Server
	in   io.Reader
	out  io.Writer
	diag io.Writer
}

// New creates a console. Dumps and listings go to out; acknowledgements and
// errors go to diag.
func New(srv Server, in io.Reader, out, diag io.Writer) *Console {
	return &Console{srv: srv, in: in, out: out, diag: diag}
}

// Run processes commands until end of input, which returns nil, or until
// ctx is done, which returns ctx's error. The caller shuts the server down
// afterwards.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("console read failed: %w", err)
					}
				default:
				}
				logger.Info("console", "end of input")
				return nil
			}
			c.Execute(line)
		}
	}
}

// Execute runs a single console command
func (c *Console) Execute(line string) {
	if line == "" {
		c.illFormed(line)
		return
	}

	switch line[0] {
	case 'p':
		path := ""
		if fields := strings.Fields(line[1:]); len(fields) > 0 {
			path = fields[0]
		}
		if err := c.srv.Dump(path, c.out); err != nil {
			fmt.Fprintf(c.diag, "dump failed: %v\n", err)
			logger.Warn("console", "dump to %q failed: %v", path, err)
		}
	case 's':
		fmt.Fprintln(c.diag, "stopping clients")
		c.srv.Pause()
	case 'g':
		fmt.Fprintln(c.diag, "releasing clients")
		c.srv.Resume()
	case 'l':
		c.list()
	default:
		c.illFormed(line)
	}
}

func (c *Console) illFormed(line string) {
	fmt.Fprintln(c.diag, "ill-formed command")
	logger.Debug("console", "ill-formed command %q", line)
}

func (c *Console) list() {
	clients := c.srv.Clients()
	if len(clients) == 0 {
		fmt.Fprintln(c.out, "no clients")
		return
	}
	for _, info := range clients {
		state := "active"
		if info.Cancelled {
			state = "cancelled"
		}
		fmt.Fprintf(c.out, "%d %s %s %s\n",
			info.ID, info.RemoteAddr, info.ConnectedAt.Format(time.RFC3339), state)
	}
}
