package playback

import (
	"bytes"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

// CommandPlayer pipes audio into an external player process such as
// "ffplay -nodisp -autoexit -".
type CommandPlayer struct {
	mu      sync.Mutex
	name    string
	args    []string
	cmd     *exec.Cmd
	stopped bool
}

// CommandFactory returns a factory of players running command
func CommandFactory(command []string) PlayerFactory {
	return func(string) Player {
		return &CommandPlayer{name: command[0], args: command[1:]}
	}
}

func (p *CommandPlayer) Start(audio []byte, done func()) error {
	cmd := exec.Command(p.name, p.args...)
	cmd.Stdin = bytes.NewReader(audio)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := cmd.Start(); err != nil {
		return err
	}
	p.cmd = cmd

	go func() {
		err := cmd.Wait()

		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()

		if err != nil && !stopped {
			log.Warn().Err(err).Str("player", p.name).Msg("Audio player exited with an error")
		}
		if !stopped {
			done()
		}
	}()

	return nil
}

func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.cmd == nil || p.cmd.Process == nil {
		p.stopped = true
		return
	}
	p.stopped = true
	_ = p.cmd.Process.Kill()
}
