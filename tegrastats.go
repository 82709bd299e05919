package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// termGracePeriod is how long a signalled tegrastats child gets to exit
// before it is killed outright.
const termGracePeriod = 200 * time.Millisecond

// Sampling failure classes surfaced to the HTTP layer. Spawn errors keep
// their cause in the chain, so exec.ErrNotFound stays detectable through
// errSpawn.
var (
	errSpawn       = errors.New("tegrastats spawn failed")
	errReadTimeout = errors.New("tegrastats produced no output before the deadline")
)

func tegrastatsAvailable(path string) bool {
	_, err := exec.LookPath(path)
	return err == nil
}

// tegrastatsProc is a running tegrastats child with its stdout captured for
// line-by-line reading. stderr is drained into a buffer so the child can
// never block on an unread pipe.
type tegrastatsProc struct {
	cmd      *exec.Cmd
	out      *bufio.Reader
	ptmx     *os.File
	stderr   bytes.Buffer
	stopOnce sync.Once
}

// startTegrastats launches the utility with the given sampling interval.
// tegrastats streams forever by default and some JetPack builds lack a
// sample-count flag, so callers read what they need and then call stop.
// With usePTY the child runs under a pseudo-terminal, for builds that
// block-buffer stdout when it is a plain pipe.
func startTegrastats(command string, interval time.Duration, usePTY bool) (*tegrastatsProc, error) {
	cmd := exec.Command(command, "--interval", strconv.Itoa(int(interval.Milliseconds())))
	p := &tegrastatsProc{cmd: cmd}

	if usePTY {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errSpawn, err)
		}
		p.ptmx = ptmx
		p.out = bufio.NewReader(ptmx)
		return p, nil
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSpawn, err)
	}
	cmd.Stderr = &p.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", errSpawn, err)
	}

	p.out = bufio.NewReader(stdout)
	return p, nil
}

// readLine returns the next line of output with surrounding whitespace
// trimmed. On EOF any partial data read so far is returned alongside the
// error.
func (p *tegrastatsProc) readLine() (string, error) {
	line, err := p.out.ReadString('\n')
	return strings.TrimSpace(line), err
}

// stop terminates the child: polite SIGTERM first, SIGKILL if it is still
// around after the grace period. Safe to call from any path, any number of
// times; the child must never outlive the request that spawned it.
func (p *tegrastatsProc) stop() {
	p.stopOnce.Do(func() {
		if p.cmd.Process == nil {
			return
		}

		p.cmd.Process.Signal(syscall.SIGTERM)

		done := make(chan error, 1)
		go func() { done <- p.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(termGracePeriod):
			p.cmd.Process.Kill()
			<-done
		}

		if p.ptmx != nil {
			p.ptmx.Close()
		}
	})
}

// sampleTegrastats grabs exactly one fresh line of tegrastats output. The
// read runs under a watchdog deadline so a wedged utility turns into an
// error instead of a hung request. One attempt, no retries.
func sampleTegrastats(cfg *Config) (string, error) {
	proc, err := startTegrastats(cfg.TegrastatsPath, cfg.Interval(), cfg.UsePTY)
	if err != nil {
		return "", err
	}
	defer proc.stop()

	type readResult struct {
		line string
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		line, err := proc.readLine()
		ch <- readResult{line, err}
	}()

	select {
	case r := <-ch:
		// EOF means the child died before emitting a full line; whatever it
		// managed to write (usually nothing) goes to the parser, and an
		// empty parse is the caller's problem to report.
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("reading tegrastats output: %w", r.err)
		}
		return r.line, nil
	case <-time.After(cfg.ReadTimeout()):
		// stop unblocks the pending read; the goroutine drains into the
		// buffered channel and exits.
		proc.stop()
		if msg := strings.TrimSpace(proc.stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", errReadTimeout, msg)
		}
		return "", errReadTimeout
	}
}
