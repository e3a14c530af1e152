package services

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ProcessTransport runs the executor as a subprocess per call, writing the
// request to stdin and reading the reply from stdout.
//
// The executor exits non-zero for ok:false replies, so a failed exit that still
// printed output is returned as output.
type ProcessTransport struct {
	Command        []string      // argv for every action
	MigrateCommand []string      // optional argv for the migrate action
	AuthFile       string        // exported as YTMUSIC_AUTH_FILE
	Env            []string      // extra KEY=VALUE pairs
	Timeout        time.Duration // per call, 0 for none
}

const stderrTail = 512

func (p *ProcessTransport) argv(action Action) []string {
	if action == ActionMigrate && len(p.MigrateCommand) > 0 {
		return p.MigrateCommand
	}
	return p.Command
}

// Do implements [Transport].
func (p *ProcessTransport) Do(ctx context.Context, action Action, payload []byte) ([]byte, error) {
	argv := p.argv(action)
	if len(argv) == 0 {
		return nil, transportError(action, "no executor command configured")
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(), p.Env...)
	if p.AuthFile != "" {
		cmd.Env = append(cmd.Env, "YTMUSIC_AUTH_FILE="+p.AuthFile)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := bytes.TrimSpace(stdout.Bytes())
	if err != nil && len(out) == 0 {
		return nil, transportError(action, "%s: %v%s", argv[0], err, tail(stderr.String()))
	}
	return out, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return ": " + s
}
