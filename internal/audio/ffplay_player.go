package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"rightskeeper/internal/ports"
)

// FFPlayPlayer plays recordings through a headless ffplay process.
type FFPlayPlayer struct {
	command string
}

func NewFFPlayPlayer(command string) *FFPlayPlayer {
	if command == "" {
		command = "ffplay"
	}
	return &FFPlayPlayer{command: command}
}

func (p *FFPlayPlayer) Play(ctx context.Context, path string) (ports.PlaybackSession, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot open recording for playback: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.command,
		"-nodisp",
		"-autoexit",
		"-hide_banner",
		"-loglevel", "warning",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffplay: %w", err)
	}

	waitErr := make(chan error, 1)
	done := make(chan error, 1)
	session := &ffplaySession{process: cmd.Process, waitErr: waitErr, done: done}

	go func() {
		err := cmd.Wait()
		waitErr <- err
		close(waitErr)
	}()
	go session.forward(&stderr)

	return session, nil
}

type ffplaySession struct {
	process *os.Process
	waitErr chan error
	done    chan error

	mu      sync.Mutex
	stopped bool

	stopOnce sync.Once
}

func (s *ffplaySession) forward(stderr *bytes.Buffer) {
	defer close(s.done)

	err, ok := <-s.waitErr
	if !ok {
		return
	}

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()

	if err != nil && !stopped {
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, stderrText(stderr))
		}
		s.done <- err
	}
}

func (s *ffplaySession) Done() <-chan error {
	return s.done
}

func (s *ffplaySession) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}
		select {
		case <-s.done:
		case <-time.After(time.Second):
			if s.process != nil {
				_ = s.process.Kill()
			}
			<-s.done
		}
	})
	return nil
}
